package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func notesResultSet() *api.ResultSet {
	return &api.ResultSet{
		Source: api.SourceAuthoritative,
		Items: []api.Recommendation{
			{Book: api.Book{ID: "bk-1", Title: "Solaris", Authors: []string{"Stanislaw Lem"}}, Score: 0.91, Reason: "slow-burn sci-fi"},
			{Book: api.Book{ID: "bk-2", Title: "Blindsight"}, Score: 0.84},
		},
	}
}

func TestComposeNotes(t *testing.T) {
	stub := &stubGenerator{response: `{"summary": "Heavy on idea-driven sci-fi.", "highlights": ["Solaris rewards a steady pace."]}`}
	writer := NewNotesWriter(stub, zap.NewNop(), 0)

	draft := api.NewDraft()
	draft.Genres = []string{"sci-fi"}
	draft.Pace = "steady"

	notes, err := writer.Compose(context.Background(), draft, notesResultSet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notes.Summary != "Heavy on idea-driven sci-fi." {
		t.Fatalf("unexpected summary: %q", notes.Summary)
	}
	if len(notes.Highlights) != 1 || !strings.Contains(notes.Highlights[0], "Solaris") {
		t.Fatalf("unexpected highlights: %v", notes.Highlights)
	}
	if notes.Raw == "" {
		t.Fatal("expected raw response retained")
	}

	if stub.lastSystem == "" {
		t.Fatal("expected system instruction to be sent")
	}
	if !strings.Contains(stub.lastMessage, "Solaris") {
		t.Fatalf("expected recommendations in the message, got: %s", stub.lastMessage)
	}
	if !strings.Contains(stub.lastMessage, "sci-fi") {
		t.Fatalf("expected taste profile in the message, got: %s", stub.lastMessage)
	}
}

func TestComposeWithoutDraft(t *testing.T) {
	stub := &stubGenerator{response: `{"summary": "A balanced list."}`}
	writer := NewNotesWriter(stub, zap.NewNop(), 0)

	notes, err := writer.Compose(context.Background(), nil, notesResultSet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notes.Summary == "" {
		t.Fatal("expected summary")
	}
	if !strings.Contains(stub.lastMessage, "Taste profile:\n{}") {
		t.Fatalf("expected explicit empty taste profile, got: %s", stub.lastMessage)
	}
}

func TestComposeRequiresResults(t *testing.T) {
	writer := NewNotesWriter(&stubGenerator{}, zap.NewNop(), 0)

	if _, err := writer.Compose(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for missing results")
	}
	if _, err := writer.Compose(context.Background(), nil, &api.ResultSet{}); err == nil {
		t.Fatal("expected error for empty results")
	}
}

func TestComposePropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	writer := NewNotesWriter(stub, zap.NewNop(), 0)

	if _, err := writer.Compose(context.Background(), nil, notesResultSet()); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestParseNotesHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"summary\": \"Fits the brief.\", \"highlights\": [\"Blindsight is the bold pick.\"]}\n```"

	notes, err := parseNotes(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notes.Summary != "Fits the brief." {
		t.Fatalf("unexpected summary: %q", notes.Summary)
	}
	if len(notes.Highlights) != 1 {
		t.Fatalf("unexpected highlights: %v", notes.Highlights)
	}
}

func TestParseNotesSingleHighlightString(t *testing.T) {
	notes, err := parseNotes(`{"summary": "ok", "highlights": "Just one note."}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notes.Highlights) != 1 || notes.Highlights[0] != "Just one note." {
		t.Fatalf("unexpected highlights: %v", notes.Highlights)
	}
}

func TestParseNotesRejectsEmpty(t *testing.T) {
	if _, err := parseNotes(`{}`); err == nil {
		t.Fatal("expected error for empty notes")
	}
	if _, err := parseNotes(`not json`); err == nil {
		t.Fatal("expected error for unparseable response")
	}
}
