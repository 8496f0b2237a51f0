package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const catalogSearchPath = "/v1/catalog/search"

type catalogSearchResponse struct {
	Items []Book `json:"items"`
}

// SearchCatalog looks up books by free-text query. Results are memoized for
// a few minutes since the survey tends to repeat lookups while the visitor
// rates titles.
func (c *Client) SearchCatalog(ctx context.Context, query string, limit int) ([]Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(query), limit)
	if cached, ok := c.catalog.Get(key); ok {
		books := cached.([]Book)
		c.logger.Debug("catalog search served from cache", zap.String("query", query), zap.Int("items", len(books)))
		return books, nil
	}

	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp catalogSearchResponse
	if _, err := c.getJSON(ctx, catalogSearchPath, q, &resp); err != nil {
		return nil, err
	}

	c.catalog.SetDefault(key, resp.Items)
	c.logger.Debug("catalog search", zap.String("query", query), zap.Int("items", len(resp.Items)))

	return resp.Items, nil
}
