package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	recommendationsPath = "/v1/recommendations"
	previewPath         = "/v1/preview"
)

type recommendationList struct {
	Items []Recommendation `json:"items"`
}

type previewRequest struct {
	Profile *Draft `json:"profile"`
	Limit   int    `json:"limit,omitempty"`
}

// FetchRecommendations returns the authoritative result set computed from
// the visitor's persisted profile. Requires a verified session.
func (c *Client) FetchRecommendations(ctx context.Context, limit int) (*ResultSet, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var list recommendationList
	requestID, err := c.getJSON(ctx, recommendationsPath, q, &list)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got recommendations", zap.Int("items", len(list.Items)), zap.String("request_id", requestID))

	return &ResultSet{
		Items:       list.Items,
		Source:      SourceAuthoritative,
		RequestID:   requestID,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// FetchPreview submits the draft for a one-off ranking without persisting
// anything server-side. Works for anonymous visitors.
func (c *Client) FetchPreview(ctx context.Context, draft *Draft, limit int) (*ResultSet, error) {
	var list recommendationList
	requestID, err := c.postJSON(ctx, previewPath, &previewRequest{Profile: draft, Limit: limit}, &list)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got preview", zap.Int("items", len(list.Items)), zap.String("request_id", requestID))

	return &ResultSet{
		Items:       list.Items,
		Source:      SourcePreview,
		RequestID:   requestID,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
