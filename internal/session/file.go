package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// fileState is the on-disk shape maintained by the sign-in flow. A pending
// link id and a bearer token should not coexist; the token wins when both
// are present.
type fileState struct {
	Token  string `json:"token,omitempty"`
	LinkID string `json:"link_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func readState(path string) (*fileState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return &st, nil
}

func writeState(path string, st *fileState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	return nil
}

func removeState(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", path, err)
	}
	return nil
}

// snapshot classifies the on-disk state and returns the live bearer token
// when verified. An expired or unreadable token degrades to anonymous
// instead of erroring; the visitor can always sign in again.
func snapshot(st *fileState, logger *zap.Logger) (Session, string) {
	if st == nil {
		return Session{State: StateAnonymous}, ""
	}

	if st.Token != "" {
		id, expiresAt, err := tokenIdentity(st.Token)
		if err != nil {
			logger.Warn("discarding unreadable session token", zap.Error(err))
			return Session{State: StateAnonymous}, ""
		}
		if expiresAt != nil && expiresAt.Before(time.Now()) {
			logger.Debug("session token expired", zap.Time("expired_at", *expiresAt))
			return Session{State: StateAnonymous}, ""
		}
		return Session{State: StateVerified, IdentityID: id, Email: st.Email}, st.Token
	}

	if st.LinkID != "" {
		return Session{State: StatePending, Email: st.Email}, ""
	}

	return Session{State: StateAnonymous}, ""
}
