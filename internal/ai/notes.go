package ai

import (
	"context"

	"github.com/beldeezy/readar-sub000/internal/api"
)

// ReadingNotes is a short natural-language take on a rendered result set:
// why the list fits the visitor, plus a remark or two on standout picks.
// Raw keeps the unparsed model output for debugging.
type ReadingNotes struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Raw        string   `json:"-"`
}

// NotesWriter composes reading notes from the visitor's taste and the
// recommendations on screen.
type NotesWriter interface {
	Compose(ctx context.Context, draft *api.Draft, results *api.ResultSet) (*ReadingNotes, error)
}
