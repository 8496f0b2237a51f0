package store

import (
	"context"
	"fmt"
	"time"
)

// ClaimFingerprint records fp as the most recent reconciliation scenario and
// reports whether the caller won the claim. It returns false when fp is
// already the recorded fingerprint, which is how a re-entrant invocation
// (component re-mount, duplicate event, second process) gets suppressed.
// The compare-and-swap is a single conditional upsert, so concurrent
// claimants of the same scenario cannot both win.
func (s *Store) ClaimFingerprint(ctx context.Context, fp string) (bool, error) {
	if fp == "" {
		return false, fmt.Errorf("store: empty fingerprint")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		WHERE kv.value <> excluded.value`,
		keyFingerprint, []byte(fp), time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("store: claim fingerprint: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: claim fingerprint: %w", err)
	}
	return n > 0, nil
}

// Fingerprint returns the recorded fingerprint, empty when none is set.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	data, found, err := s.get(ctx, keyFingerprint)
	if err != nil || !found {
		return "", err
	}
	return string(data), nil
}

// ClearFingerprint forgets the recorded scenario so the next reconciliation
// acts again. Called on manual retry and when the survey rewrites the draft.
func (s *Store) ClearFingerprint(ctx context.Context) error {
	return s.delete(ctx, keyFingerprint)
}
