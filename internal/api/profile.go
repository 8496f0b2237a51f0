package api

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const profilePath = "/v1/profile"

// RemoteProfile is the backend's copy of a visitor's taste profile. Its
// presence is what separates a returning reader from a first-time visitor.
type RemoteProfile struct {
	ID        string                  `json:"id"`
	Genres    []string                `json:"genres,omitempty"`
	Pace      string                  `json:"pace,omitempty"`
	Length    string                  `json:"length,omitempty"`
	Languages []string                `json:"languages,omitempty"`
	Ratings   map[string]RatingStatus `json:"ratings,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// FetchProfile asks the backend whether the authenticated visitor already
// has a persisted profile. A missing profile surfaces as ErrNotFound; an
// unreachable backend surfaces as ErrUnavailable and says nothing about
// whether the profile exists.
func (c *Client) FetchProfile(ctx context.Context) (*RemoteProfile, error) {
	var profile RemoteProfile
	if _, err := c.getJSON(ctx, profilePath, nil, &profile); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched profile", zap.String("profile_id", profile.ID), zap.Time("updated_at", profile.UpdatedAt))

	return &profile, nil
}

// PersistProfile writes the draft as the visitor's profile. Only a nil error
// confirms the write; any failure leaves ownership of the answers with the
// local draft.
func (c *Client) PersistProfile(ctx context.Context, draft *Draft) (*RemoteProfile, error) {
	var profile RemoteProfile
	if _, err := c.putJSON(ctx, profilePath, draft, &profile); err != nil {
		return nil, err
	}

	c.logger.Info("profile persisted", zap.String("profile_id", profile.ID))

	return &profile, nil
}
