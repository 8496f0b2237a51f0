// Package survey walks the visitor through the reading-taste questions and
// assembles the draft the reconciliation engine works from. The draft is
// saved after every completed step, so an abandoned run resumes where it
// stopped.
package survey

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/store"
)

const (
	PromptDone = "Done"
	PromptBack = "Back"
	PromptYes  = "Yes"
	PromptNo   = "No"
)

// searchLimit caps the catalog hits offered per rating query.
const searchLimit = 8

// Catalog is the search surface behind the rating step. *api.Client
// implements it.
type Catalog interface {
	SearchCatalog(ctx context.Context, query string, limit int) ([]api.Book, error)
}

type Deps struct {
	Store   *store.Store
	Catalog Catalog
	Logger  *zap.Logger
}

// Runner drives the survey prompts. The prompt wiring is deliberately thin;
// everything worth testing lives in the choice helpers.
type Runner struct {
	store   *store.Store
	catalog Catalog
	logger  *zap.Logger
}

func New(deps *Deps) *Runner {
	return &Runner{
		store:   deps.Store,
		catalog: deps.Catalog,
		logger:  deps.Logger,
	}
}

// Run asks the unanswered questions and returns the completed draft. Pass
// nil to start from scratch; pass a stored draft to resume it.
func (r *Runner) Run(ctx context.Context, draft *api.Draft) (*api.Draft, error) {
	if draft == nil {
		draft = api.NewDraft()
	}

	steps := []func(context.Context, *api.Draft) error{
		r.askGenres,
		r.askPace,
		r.askLength,
		r.askLanguages,
		r.askRatings,
	}
	for _, step := range steps {
		if err := step(ctx, draft); err != nil {
			return nil, err
		}
	}

	r.logger.Info("survey finished",
		zap.Strings("genres", draft.Genres),
		zap.String("pace", draft.Pace),
		zap.String("length", draft.Length),
		zap.Int("ratings", len(draft.Ratings)),
	)
	return draft, nil
}

func (r *Runner) askGenres(ctx context.Context, draft *api.Draft) error {
	if len(draft.Genres) > 0 {
		return nil
	}

	cursor := 0
	for {
		items := checklist(genreChoices, draft.Genres, len(draft.Genres) > 0)
		sel := promptui.Select{
			Label:     "Pick the genres you enjoy",
			Items:     items,
			Size:      len(items),
			CursorPos: cursor,
		}

		idx, choice, err := sel.Run()
		if err != nil {
			return err
		}
		if choice == PromptDone {
			return r.save(ctx, draft)
		}

		cursor = idx
		draft.Genres = toggle(draft.Genres, choiceFromItem(choice))
	}
}

func (r *Runner) askPace(ctx context.Context, draft *api.Draft) error {
	if draft.Pace != "" {
		return nil
	}

	sel := promptui.Select{Label: "The pace you enjoy most", Items: paceChoices}
	_, choice, err := sel.Run()
	if err != nil {
		return err
	}

	draft.Pace = choice
	return r.save(ctx, draft)
}

func (r *Runner) askLength(ctx context.Context, draft *api.Draft) error {
	if draft.Length != "" {
		return nil
	}

	sel := promptui.Select{Label: "Preferred book length", Items: lengthChoices}
	_, choice, err := sel.Run()
	if err != nil {
		return err
	}

	draft.Length = choice
	return r.save(ctx, draft)
}

func (r *Runner) askLanguages(ctx context.Context, draft *api.Draft) error {
	if len(draft.Languages) > 0 {
		return nil
	}

	cursor := 0
	for {
		// Languages are optional, so Done is always on the list.
		items := checklist(languageChoices, draft.Languages, true)
		sel := promptui.Select{
			Label:     "Languages you read in (optional)",
			Items:     items,
			Size:      len(items),
			CursorPos: cursor,
		}

		idx, choice, err := sel.Run()
		if err != nil {
			return err
		}
		if choice == PromptDone {
			return r.save(ctx, draft)
		}

		cursor = idx
		draft.Languages = toggle(draft.Languages, choiceFromItem(choice))
	}
}

// askRatings runs the optional rating loop: search the catalog, pick a book,
// record a verdict. Search failures skip the round instead of aborting the
// survey.
func (r *Runner) askRatings(ctx context.Context, draft *api.Draft) error {
	if r.catalog == nil {
		return nil
	}

	for {
		label := "Rate a few books you know?"
		if len(draft.Ratings) > 0 {
			label = "Rate another?"
		}

		sel := promptui.Select{Label: label, Items: []string{PromptYes, PromptNo}}
		_, choice, err := sel.Run()
		if err != nil {
			return err
		}
		if choice == PromptNo {
			return nil
		}

		if err := r.rateOne(ctx, draft); err != nil {
			return err
		}
	}
}

func (r *Runner) rateOne(ctx context.Context, draft *api.Draft) error {
	query := promptui.Prompt{Label: "Search the catalog", Validate: notBlank}
	q, err := query.Run()
	if err != nil {
		return err
	}

	books, err := r.catalog.SearchCatalog(ctx, q, searchLimit)
	if err != nil {
		r.logger.Warn("catalog search failed", zap.String("query", q), zap.Error(err))
		return nil
	}
	if len(books) == 0 {
		r.logger.Info("nothing matched", zap.String("query", q))
		return nil
	}

	items := make([]string, 0, len(books)+1)
	for _, b := range books {
		items = append(items, bookItem(b))
	}

	bookSel := promptui.Select{
		Label: "Choose a book and press ENTER",
		Items: append(items, PromptBack),
		Size:  len(items) + 1,
	}
	_, picked, err := bookSel.Run()
	if err != nil {
		return err
	}
	if picked == PromptBack {
		return nil
	}

	verdictSel := promptui.Select{Label: "Your verdict", Items: verdictLabels}
	_, verdict, err := verdictSel.Run()
	if err != nil {
		return err
	}

	draft.Rate(bookIDFromItem(picked), verdictFor(verdict))
	return r.save(ctx, draft)
}

func (r *Runner) save(ctx context.Context, draft *api.Draft) error {
	draft.Touch()
	if err := r.store.SetDraft(ctx, draft); err != nil {
		return fmt.Errorf("saving the draft: %w", err)
	}
	return nil
}
