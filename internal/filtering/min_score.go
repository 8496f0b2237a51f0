package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

type minScoreFilter struct {
	min float64
}

// NewMinScore creates a filter that drops recommendations scored under the
// configured floor. A floor of zero keeps everything.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(string) {}

func (f *minScoreFilter) IsEnabled() bool { return true }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg != nil {
		f.min = cfg.MinScore
	}
	if f.min < 0 || f.min > 1 {
		return fmt.Errorf("min score must be within [0, 1], got %v", f.min)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, set *api.ResultSet) (*api.ResultSet, Step, error) {
	initial := set.Len()
	if f.min == 0 {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	excluded := set.ExcludeFunc(func(rec api.Recommendation) bool {
		return rec.Score < f.min
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding books under the score floor",
			zap.Float64("min_score", f.min),
			zap.Strings("excluded_books", excluded),
			zap.Int("recommendations_left", set.Len()),
		)
	}

	return set, Step{Initial: initial, Dropped: len(excluded), Left: set.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	details := map[string]string{}
	if f.min > 0 {
		details["min_score"] = strconv.FormatFloat(f.min, 'f', -1, 64)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
