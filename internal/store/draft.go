package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beldeezy/readar-sub000/internal/api"
)

// Draft returns the stored survey draft, reporting found=false when the
// visitor has not answered anything yet.
func (s *Store) Draft(ctx context.Context) (*api.Draft, bool, error) {
	data, found, err := s.get(ctx, keyDraft)
	if err != nil || !found {
		return nil, false, err
	}

	var draft api.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, false, fmt.Errorf("store: decode draft: %w", err)
	}
	return &draft, true, nil
}

func (s *Store) SetDraft(ctx context.Context, draft *api.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("store: encode draft: %w", err)
	}
	return s.set(ctx, keyDraft, data)
}

// DeleteDraft removes the draft. Called exactly once per draft lifetime,
// after the backend has confirmed the persist.
func (s *Store) DeleteDraft(ctx context.Context) error {
	return s.delete(ctx, keyDraft)
}
