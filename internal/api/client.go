package api

import (
	"context"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.readar.app"
	userAgent = "beldeezy/readar (readar@beldeezy.dev)"

	defaultTimeout = 20 * time.Second

	catalogCacheTTL   = 5 * time.Minute
	catalogCacheSweep = 10 * time.Minute
)

// TokenSource yields the bearer token for the next request, or an empty
// string while the visitor is anonymous. It is consulted per call so a
// mid-run verification is picked up without rebuilding the client.
type TokenSource func() string

type Client struct {
	tokens  TokenSource
	logger  *zap.Logger
	catalog *cache.Cache

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	Timeout    time.Duration
}

func New(logger *zap.Logger, tokens TokenSource) *Client {
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &Client{
		tokens:  tokens,
		logger:  logger,
		catalog: cache.New(catalogCacheTTL, catalogCacheSweep),
		APIURL:  apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
		Timeout:   defaultTimeout,
	}
}

// callCtx narrows the caller context to the per-request timeout.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
