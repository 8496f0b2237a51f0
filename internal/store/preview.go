package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beldeezy/readar-sub000/internal/api"
)

// Preview returns the cached preview result set, if any. The cache only
// holds previews; authoritative sets are never written here.
func (s *Store) Preview(ctx context.Context) (*api.ResultSet, bool, error) {
	data, found, err := s.get(ctx, keyPreview)
	if err != nil || !found {
		return nil, false, err
	}

	var set api.ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, false, fmt.Errorf("store: decode preview: %w", err)
	}
	return &set, true, nil
}

// SetPreview caches a preview result set until it is superseded by an
// authoritative one.
func (s *Store) SetPreview(ctx context.Context, set *api.ResultSet) error {
	if set != nil && set.Source != api.SourcePreview {
		return fmt.Errorf("store: refusing to cache %s result set as preview", set.Source)
	}
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("store: encode preview: %w", err)
	}
	return s.set(ctx, keyPreview, data)
}

// DeletePreview removes the cached preview. Safe to call when none exists.
func (s *Store) DeletePreview(ctx context.Context) error {
	return s.delete(ctx, keyPreview)
}
