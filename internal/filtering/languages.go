package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

type languagesFilter struct {
	disabled  bool
	reason    string
	languages []string
}

// NewLanguages creates a filter that keeps only books in the configured
// languages. Books with no language metadata are kept.
func NewLanguages() Filter {
	return &languagesFilter{}
}

func (f *languagesFilter) Name() string { return "languages" }

func (f *languagesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *languagesFilter) IsEnabled() bool { return !f.disabled }

func (f *languagesFilter) Validate(cfg *Config) error {
	f.languages = nil
	if cfg != nil {
		f.languages = append(f.languages, cfg.Languages...)
	}
	return nil
}

func (f *languagesFilter) Apply(_ context.Context, deps Deps, set *api.ResultSet) (*api.ResultSet, Step, error) {
	initial := set.Len()
	if len(f.languages) == 0 {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	allowed := make(map[string]struct{}, len(f.languages))
	for _, lang := range f.languages {
		allowed[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}

	excluded := set.ExcludeFunc(func(rec api.Recommendation) bool {
		lang := strings.ToLower(rec.Book.Language)
		if lang == "" {
			return false
		}
		_, ok := allowed[lang]
		return !ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding books outside the language preference",
			zap.Strings("languages", f.languages),
			zap.Strings("excluded_books", excluded),
			zap.Int("recommendations_left", set.Len()),
		)
	}

	return set, Step{Initial: initial, Dropped: len(excluded), Left: set.Len()}, nil
}

func (f *languagesFilter) Status() Status {
	details := map[string]string{}
	if len(f.languages) > 0 {
		details["languages"] = strings.Join(f.languages, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
