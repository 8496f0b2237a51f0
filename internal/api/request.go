package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contentType = "application/json"

	// Error payloads are small; anything bigger is not worth keeping.
	maxErrorBody = 64 << 10
)

// do performs one API call and decodes the response into target when the
// target is non-nil. It returns the request id stamped on the call so result
// sets can record their provenance.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload, target interface{}) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIURL+path, body)
	if err != nil {
		return "", err
	}

	requestID := uuid.NewString()
	req = c.setHeaders(req, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return requestID, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return requestID, c.parseError(resp)
	}

	if target == nil {
		io.Copy(io.Discard, resp.Body)
		return requestID, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return requestID, fmt.Errorf("%w: decoding %s %s response: %v", ErrUnavailable, method, path, err)
	}

	return requestID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, target interface{}) (string, error) {
	return c.do(ctx, http.MethodGet, path, q, nil, target)
}

func (c *Client) putJSON(ctx context.Context, path string, payload, target interface{}) (string, error) {
	return c.do(ctx, http.MethodPut, path, nil, payload, target)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, target interface{}) (string, error) {
	return c.do(ctx, http.MethodPost, path, nil, payload, target)
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get("X-Request-Id")),
	)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, requestID string) *http.Request {
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("X-Request-Id", requestID)

	return req
}

// parseError reads the error envelope, falling back to the HTTP status when
// the body is not the documented JSON shape.
func (c *Client) parseError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return classifyStatus(resp.StatusCode, nil)
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		c.logger.Debug("error response is not json", zap.Int("status", resp.StatusCode))
		return classifyStatus(resp.StatusCode, nil)
	}

	return classifyStatus(resp.StatusCode, &body)
}
