package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/ai"
	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/utils"
)

// contentGenerator is the slice of Generator the writer needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// NotesWriter turns a draft plus a result set into short reading notes.
type NotesWriter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewNotesWriter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *NotesWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &NotesWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Compose asks the model why the recommended books fit the visitor's taste.
func (w *NotesWriter) Compose(ctx context.Context, draft *api.Draft, results *api.ResultSet) (*ai.ReadingNotes, error) {
	if results == nil || results.Len() == 0 {
		return nil, errors.New("a non-empty result set is required")
	}

	tasteJSON, err := json.MarshalIndent(tastePayload(draft), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal taste payload: %w", err)
	}

	resultsJSON, err := json.MarshalIndent(resultsPayload(results), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal results payload: %w", err)
	}

	message := buildMessage(string(tasteJSON), string(resultsJSON))

	w.logger.Debug("gemini notes request",
		zap.String("model", w.generator.Model()),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, w.maxLogLen)),
	)

	raw, err := w.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	w.logger.Debug("gemini notes response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, w.maxLogLen)),
	)

	notes, err := parseNotes(raw)
	if err != nil {
		return nil, err
	}

	notes.Raw = raw
	return notes, nil
}

// tastePayload tolerates a missing draft (already persisted): the model
// still sees an explicit empty profile instead of a hole in the prompt.
func tastePayload(draft *api.Draft) map[string]any {
	payload := map[string]any{}
	if draft == nil {
		return payload
	}

	if len(draft.Genres) > 0 {
		payload["genres"] = draft.Genres
	}
	if draft.Pace != "" {
		payload["pace"] = draft.Pace
	}
	if draft.Length != "" {
		payload["length"] = draft.Length
	}
	if len(draft.Languages) > 0 {
		payload["languages"] = draft.Languages
	}
	return payload
}

func resultsPayload(results *api.ResultSet) []map[string]any {
	items := make([]map[string]any, 0, results.Len())
	for _, rec := range results.Items {
		item := map[string]any{
			"title": rec.Book.Title,
			"score": rec.Score,
		}
		if len(rec.Book.Authors) > 0 {
			item["authors"] = rec.Book.Authors
		}
		if rec.Reason != "" {
			item["reason"] = rec.Reason
		}
		items = append(items, item)
	}
	return items
}

func buildMessage(tasteJSON, resultsJSON string) string {
	return fmt.Sprintf("Taste profile:\n%s\n\nRecommendations:\n%s\n\nJSON response:", tasteJSON, resultsJSON)
}

func parseNotes(raw string) (*ai.ReadingNotes, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	// Weak decoding smooths over the model's format drift: a lone highlight
	// string becomes a one-element list, numbers become strings.
	var notes ai.ReadingNotes
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &notes,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	notes.Summary = strings.TrimSpace(notes.Summary)
	notes.Highlights = cleanHighlights(notes.Highlights)

	if notes.Summary == "" && len(notes.Highlights) == 0 {
		return nil, errors.New("gemini response carried no notes")
	}

	return &notes, nil
}

func cleanHighlights(in []string) []string {
	out := in[:0]
	for _, h := range in {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

