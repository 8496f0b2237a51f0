package api

import "time"

// Source tells a consumer which pipeline produced a result set. Preview sets
// come from an unauthenticated draft submission and may be served stale;
// authoritative sets come from the visitor's persisted profile.
type Source string

const (
	SourcePreview       Source = "preview"
	SourceAuthoritative Source = "authoritative"
)

// Book is a catalog entry as the backend describes it.
type Book struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	Language string   `json:"language,omitempty"`
	Pages    int      `json:"pages,omitempty"`
}

// Recommendation is one ranked suggestion inside a result set.
type Recommendation struct {
	Book   Book    `json:"book"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// ResultSet is an ordered list of recommendations plus enough provenance to
// tell cached previews apart from fresh authoritative answers.
type ResultSet struct {
	Items       []Recommendation `json:"items"`
	Source      Source           `json:"source"`
	RequestID   string           `json:"request_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Field names understood by Exclude.
const (
	RecommendationBookIDField   = "BookID"
	RecommendationLanguageField = "Language"
)

// Len returns the number of recommendations in the set.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// FindByBookID returns the recommendation for the given book, nil when the
// set does not contain it.
func (r *ResultSet) FindByBookID(id string) *Recommendation {
	for i := range r.Items {
		if r.Items[i].Book.ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

func (rec *Recommendation) GetStringField(name string) string {
	switch name {
	case RecommendationBookIDField:
		return rec.Book.ID
	case RecommendationLanguageField:
		return rec.Book.Language
	default:
		return ""
	}
}

// Exclude removes recommendations whose field matches any target and returns
// the removed book ids. Rank order is preserved; the list is the product.
func (r *ResultSet) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		drop[t] = struct{}{}
	}
	return r.ExcludeFunc(func(rec Recommendation) bool {
		_, hit := drop[rec.GetStringField(name)]
		return hit
	})
}

// ExcludeFunc removes recommendations matching the predicate and returns the
// removed book ids. Rank order is preserved.
func (r *ResultSet) ExcludeFunc(match func(Recommendation) bool) []string {
	var excluded []string
	kept := r.Items[:0]
	for _, rec := range r.Items {
		if match(rec) {
			excluded = append(excluded, rec.Book.ID)
			continue
		}
		kept = append(kept, rec)
	}
	r.Items = kept
	return excluded
}

// Clone returns a copy whose item slice callers can shrink or reorder
// without aliasing the original.
func (r *ResultSet) Clone() *ResultSet {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = append([]Recommendation(nil), r.Items...)
	return &out
}
