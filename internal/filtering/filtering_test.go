package filtering

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/store"
)

func sampleSet() *api.ResultSet {
	return &api.ResultSet{
		Source: api.SourceAuthoritative,
		Items: []api.Recommendation{
			{Book: api.Book{ID: "b1", Title: "First", Language: "en"}, Score: 0.9},
			{Book: api.Book{ID: "b2", Title: "Second", Language: "pl"}, Score: 0.5},
			{Book: api.Book{ID: "b3", Title: "Third"}, Score: 0.2},
		},
	}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{Store: store.OpenMemory(t), Logger: zap.NewNop()}
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	cfg := &Config{MinScore: 0.4, Languages: []string{"en"}}
	steps := []Filter{NewMinScore(), NewLanguages()}

	set, err := Run(context.Background(), cfg, testDeps(t), steps, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("expected 2 recommendations left, got %d", set.Len())
	}
	if set.Items[0].Book.ID != "b1" || set.Items[1].Book.ID != "b3" {
		t.Fatalf("unexpected survivors or order: %+v", set.Items)
	}
}

func TestRunValidatesBeforeApplying(t *testing.T) {
	cfg := &Config{MinScore: 1.5}
	steps := []Filter{NewMinScore()}

	if _, err := Run(context.Background(), cfg, testDeps(t), steps, sampleSet()); err == nil {
		t.Fatal("expected validation error for out-of-range score floor")
	}
}

func TestRatedHistoryExcludesDraftRatings(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	draft := api.NewDraft()
	draft.Rate("b2", api.RatingDisliked)
	if err := deps.Store.SetDraft(ctx, draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	set, err := Run(ctx, &Config{}, deps, []Filter{NewRatedHistory(nil)}, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("expected rated book dropped, got %d left", set.Len())
	}
	if set.FindByBookID("b2") != nil {
		t.Fatal("expected b2 to be excluded")
	}
}

func TestRatedHistoryHonorsIncludeRatedFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("include-rated", false, "")
	if err := cmd.Flags().Set("include-rated", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	deps := testDeps(t)
	ctx := context.Background()

	draft := api.NewDraft()
	draft.Rate("b2", api.RatingLoved)
	if err := deps.Store.SetDraft(ctx, draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	set, err := Run(ctx, &Config{}, deps, []Filter{NewRatedHistory(cmd)}, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected nothing dropped with include-rated, got %d left", set.Len())
	}
}

func TestShelfFileExcludesShelvedBooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.json")
	shelf := &api.Shelf{Items: []*api.ShelfEntry{{ID: "b1", Title: "First"}}}
	data, err := json.Marshal(shelf)
	if err != nil {
		t.Fatalf("marshal shelf: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write shelf: %v", err)
	}

	viper.Set("shelf-file", path)
	defer viper.Reset()

	set, err := Run(context.Background(), &Config{}, testDeps(t), []Filter{NewShelfFile()}, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if set.FindByBookID("b1") != nil {
		t.Fatal("expected shelved book excluded")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 left, got %d", set.Len())
	}
}

func TestShelfFileEmptyPathIsNoop(t *testing.T) {
	viper.Reset()

	set, err := Run(context.Background(), &Config{}, testDeps(t), []Filter{NewShelfFile()}, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected untouched set, got %d left", set.Len())
	}
}

func TestLanguagesKeepsBooksWithoutMetadata(t *testing.T) {
	cfg := &Config{Languages: []string{"EN"}}

	set, err := Run(context.Background(), cfg, testDeps(t), []Filter{NewLanguages()}, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if set.FindByBookID("b2") != nil {
		t.Fatal("expected polish book excluded")
	}
	if set.FindByBookID("b3") == nil {
		t.Fatal("expected book without language metadata kept")
	}
}

func TestDisableByNameSkipsStep(t *testing.T) {
	steps := []Filter{NewLanguages()}
	DisableByName(steps, "languages", "draft has no language preference")

	cfg := &Config{Languages: []string{"en"}}
	set, err := Run(context.Background(), cfg, testDeps(t), steps, sampleSet())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("disabled step must not drop anything, got %d left", set.Len())
	}

	statuses := Describe(steps)
	if len(statuses) != 1 || statuses[0].Enabled {
		t.Fatalf("expected disabled status, got %+v", statuses)
	}
	if statuses[0].Reason != "draft has no language preference" {
		t.Fatalf("expected disable reason kept, got %q", statuses[0].Reason)
	}
}
