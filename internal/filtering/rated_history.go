package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

const includeRatedMsg = "include-rated flag is set"

type ratedHistoryFilter struct {
	ignore bool
}

// NewRatedHistory creates a filter that removes books the visitor already
// rated during the survey.
func NewRatedHistory(cmd *cobra.Command) Filter {
	ignore := false
	if cmd != nil {
		flag := cmd.Flag("include-rated")
		if flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			ignore = true
		}
	}
	return &ratedHistoryFilter{ignore: ignore}
}

func (f *ratedHistoryFilter) Name() string { return "rated_history" }

func (f *ratedHistoryFilter) Disable(string) {}

func (f *ratedHistoryFilter) IsEnabled() bool { return true }

func (f *ratedHistoryFilter) Validate(*Config) error { return nil }

func (f *ratedHistoryFilter) Apply(ctx context.Context, deps Deps, set *api.ResultSet) (*api.ResultSet, Step, error) {
	initial := set.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already rated books", zap.String("reason", includeRatedMsg))
		}
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	if deps.Store == nil {
		return set, Step{}, fmt.Errorf("store is required")
	}

	draft, found, err := deps.Store.Draft(ctx)
	if err != nil {
		return set, Step{}, fmt.Errorf("read draft: %w", err)
	}
	if !found {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	excluded := set.Exclude(api.RecommendationBookIDField, draft.RatedBookIDs())
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding books already rated in the draft",
			zap.Strings("excluded_books", excluded),
			zap.Int("recommendations_left", set.Len()),
		)
	}

	return set, Step{Initial: initial, Dropped: len(excluded), Left: set.Len()}, nil
}

func (f *ratedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_rated": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
