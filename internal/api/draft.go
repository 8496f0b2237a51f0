package api

import (
	"sort"
	"time"
)

// RatingStatus is a visitor's verdict on a single book during the survey.
type RatingStatus string

const (
	RatingLoved    RatingStatus = "loved"
	RatingLiked    RatingStatus = "liked"
	RatingDisliked RatingStatus = "disliked"
	RatingSkipped  RatingStatus = "skipped"
)

// Draft holds not-yet-persisted survey answers. It lives in the local store
// until a confirmed remote write, at which point ownership transfers to the
// backend and the local copy is deleted exactly once.
type Draft struct {
	Genres    []string                `json:"genres,omitempty"`
	Pace      string                  `json:"pace,omitempty"`
	Length    string                  `json:"length,omitempty"`
	Languages []string                `json:"languages,omitempty"`
	Ratings   map[string]RatingStatus `json:"ratings,omitempty"`
	UpdatedAt time.Time               `json:"updated_at,omitempty"`
}

// NewDraft returns an empty draft stamped with the current time.
func NewDraft() *Draft {
	return &Draft{
		Ratings:   make(map[string]RatingStatus),
		UpdatedAt: time.Now().UTC(),
	}
}

// Rate records a verdict for a book and refreshes the draft timestamp.
func (d *Draft) Rate(bookID string, status RatingStatus) {
	if d.Ratings == nil {
		d.Ratings = make(map[string]RatingStatus)
	}
	d.Ratings[bookID] = status
	d.Touch()
}

// Touch refreshes the draft timestamp.
func (d *Draft) Touch() {
	d.UpdatedAt = time.Now().UTC()
}

// Empty reports whether no answer has been recorded yet.
func (d *Draft) Empty() bool {
	if d == nil {
		return true
	}
	return len(d.Genres) == 0 && d.Pace == "" && d.Length == "" &&
		len(d.Languages) == 0 && len(d.Ratings) == 0
}

// Complete reports whether the draft carries enough answers to ask the
// backend for recommendations. Ratings are optional; taste selects are not.
func (d *Draft) Complete() bool {
	if d == nil {
		return false
	}
	return len(d.Genres) > 0 && d.Pace != "" && d.Length != ""
}

// RatedBookIDs returns the rated book ids in stable order.
func (d *Draft) RatedBookIDs() []string {
	if d == nil || len(d.Ratings) == 0 {
		return nil
	}
	ids := make([]string, 0, len(d.Ratings))
	for id := range d.Ratings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy so callers can mutate answers without aliasing
// the stored draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := &Draft{
		Pace:      d.Pace,
		Length:    d.Length,
		UpdatedAt: d.UpdatedAt,
	}
	out.Genres = append(out.Genres, d.Genres...)
	out.Languages = append(out.Languages, d.Languages...)
	if d.Ratings != nil {
		out.Ratings = make(map[string]RatingStatus, len(d.Ratings))
		for id, status := range d.Ratings {
			out.Ratings[id] = status
		}
	}
	return out
}
