package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

type shelfFileFilter struct {
	path string
}

// NewShelfFile creates a filter that removes books listed in a shelf export.
func NewShelfFile() Filter {
	return &shelfFileFilter{}
}

func (f *shelfFileFilter) Name() string { return "shelf_file" }

func (f *shelfFileFilter) Disable(string) {}

func (f *shelfFileFilter) IsEnabled() bool { return true }

func (f *shelfFileFilter) Validate(*Config) error {
	f.path = strings.TrimSpace(viper.GetString("shelf-file"))
	return nil
}

func (f *shelfFileFilter) Apply(_ context.Context, deps Deps, set *api.ResultSet) (*api.ResultSet, Step, error) {
	initial := set.Len()
	if f.path == "" {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	shelf, err := api.ReadShelfFile(f.path)
	if err != nil {
		return set, Step{}, fmt.Errorf("reading shelf file: %w", err)
	}

	removed := set.Exclude(api.RecommendationBookIDField, shelf.BookIDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding books from the shelf file",
			zap.String("path", f.path),
			zap.Strings("excluded_books", removed),
			zap.Int("recommendations_left", set.Len()),
		)
	}

	return set, Step{Initial: initial, Dropped: len(removed), Left: set.Len()}, nil
}

func (f *shelfFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
