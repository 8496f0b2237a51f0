package survey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beldeezy/readar-sub000/internal/api"
)

const (
	selectedMark   = "[x] "
	unselectedMark = "[ ] "
)

var (
	genreChoices = []string{
		"fantasy", "sci-fi", "mystery", "thriller", "romance",
		"literary", "history", "biography", "science", "horror",
	}
	paceChoices     = []string{"slow", "steady", "fast"}
	lengthChoices   = []string{"short", "medium", "long"}
	languageChoices = []string{"english", "spanish", "french", "german", "italian", "russian"}

	verdictLabels = []string{"Loved it", "Liked it", "Not for me", "Skip"}
)

// checklist renders a multi-select round: every choice prefixed with its
// mark, plus the Done sentinel when finishing is allowed.
func checklist(choices, selected []string, done bool) []string {
	items := make([]string, 0, len(choices)+1)
	for _, c := range choices {
		mark := unselectedMark
		if contains(selected, c) {
			mark = selectedMark
		}
		items = append(items, mark+c)
	}
	if done {
		items = append(items, PromptDone)
	}
	return items
}

// choiceFromItem strips the checklist mark back off a rendered item.
func choiceFromItem(item string) string {
	item = strings.TrimPrefix(item, selectedMark)
	return strings.TrimPrefix(item, unselectedMark)
}

// toggle flips a choice in or out of the selection, preserving pick order.
func toggle(selected []string, choice string) []string {
	for i, s := range selected {
		if s == choice {
			return append(selected[:i], selected[i+1:]...)
		}
	}
	return append(selected, choice)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// bookItem labels a catalog hit for the picker. The id leads so it can be
// split back out of the selected line.
func bookItem(b api.Book) string {
	label := fmt.Sprintf("%s %s", b.ID, b.Title)
	if len(b.Authors) > 0 {
		label = fmt.Sprintf("%s / %s", label, strings.Join(b.Authors, ", "))
	}
	if b.Year > 0 {
		label = fmt.Sprintf("%s / %d", label, b.Year)
	}
	return label
}

func bookIDFromItem(item string) string {
	return strings.Split(item, " ")[0]
}

func verdictFor(label string) api.RatingStatus {
	switch label {
	case "Loved it":
		return api.RatingLoved
	case "Liked it":
		return api.RatingLiked
	case "Not for me":
		return api.RatingDisliked
	default:
		return api.RatingSkipped
	}
}

func notBlank(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("type something to search for")
	}
	return nil
}
