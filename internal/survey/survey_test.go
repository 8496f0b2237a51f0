package survey

import (
	"testing"

	"github.com/beldeezy/readar-sub000/internal/api"
)

func TestChecklistMarksSelection(t *testing.T) {
	items := checklist([]string{"fantasy", "mystery", "horror"}, []string{"mystery"}, false)

	want := []string{"[ ] fantasy", "[x] mystery", "[ ] horror"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d: %v", len(want), len(items), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d: expected %q, got %q", i, want[i], items[i])
		}
	}
}

func TestChecklistDoneSentinel(t *testing.T) {
	without := checklist([]string{"fantasy"}, nil, false)
	if last := without[len(without)-1]; last == PromptDone {
		t.Fatal("done sentinel must be absent until finishing is allowed")
	}

	with := checklist([]string{"fantasy"}, []string{"fantasy"}, true)
	if last := with[len(with)-1]; last != PromptDone {
		t.Fatalf("expected done sentinel last, got %q", last)
	}
}

func TestChoiceFromItem(t *testing.T) {
	if got := choiceFromItem("[x] mystery"); got != "mystery" {
		t.Fatalf("expected mystery, got %q", got)
	}
	if got := choiceFromItem("[ ] horror"); got != "horror" {
		t.Fatalf("expected horror, got %q", got)
	}
}

func TestToggle(t *testing.T) {
	sel := toggle(nil, "fantasy")
	sel = toggle(sel, "mystery")
	sel = toggle(sel, "horror")

	if len(sel) != 3 || sel[0] != "fantasy" || sel[2] != "horror" {
		t.Fatalf("expected pick order preserved, got %v", sel)
	}

	sel = toggle(sel, "mystery")
	if len(sel) != 2 || sel[0] != "fantasy" || sel[1] != "horror" {
		t.Fatalf("expected mystery removed, got %v", sel)
	}
}

func TestBookItemLeadsWithID(t *testing.T) {
	b := api.Book{ID: "bk-42", Title: "The Dispossessed", Authors: []string{"Ursula K. Le Guin"}, Year: 1974}

	item := bookItem(b)
	if got := bookIDFromItem(item); got != "bk-42" {
		t.Fatalf("expected bk-42 back out of %q, got %q", item, got)
	}

	bare := bookItem(api.Book{ID: "bk-1", Title: "Untitled"})
	if bare != "bk-1 Untitled" {
		t.Fatalf("expected minimal label, got %q", bare)
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		label string
		want  api.RatingStatus
	}{
		{"Loved it", api.RatingLoved},
		{"Liked it", api.RatingLiked},
		{"Not for me", api.RatingDisliked},
		{"Skip", api.RatingSkipped},
	}

	for _, tt := range tests {
		if got := verdictFor(tt.label); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.label, tt.want, got)
		}
	}
}

func TestNotBlank(t *testing.T) {
	if err := notBlank("   "); err == nil {
		t.Fatal("expected blank input rejected")
	}
	if err := notBlank("le guin"); err != nil {
		t.Fatalf("expected query accepted, got %v", err)
	}
}
