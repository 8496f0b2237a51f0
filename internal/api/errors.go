package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Backend outcomes the rest of the client branches on. A missing remote
// profile and an unreachable backend are distinct conditions and must never
// collapse into each other: treating "unreachable" as "no profile" would
// wipe a returning visitor's data.
var (
	// ErrNotFound marks an expected absence (no remote profile yet).
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated marks a rejected or expired credential. Session
	// handling owns the reaction; callers should not surface it as an
	// application error.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable marks a backend that is down, slow or failing
	// (connection errors, timeouts and 5xx responses).
	ErrUnavailable = errors.New("backend unavailable")
)

// ValidationError is returned when the backend rejects a submitted draft.
// The draft stays local so the visitor can correct it.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "draft rejected by backend"
	}
	return fmt.Sprintf("draft rejected by backend: %s", e.Detail)
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (b *errorBody) message() string {
	if b == nil {
		return ""
	}
	if b.Detail != "" {
		return b.Detail
	}
	return b.Error
}

// classifyStatus maps an HTTP status to the outcome taxonomy.
func classifyStatus(status int, body *errorBody) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, http.StatusText(status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, http.StatusText(status))
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return &ValidationError{Detail: body.message()}
	case status >= 500:
		return fmt.Errorf("%w: server error: %s", ErrUnavailable, http.StatusText(status))
	default:
		return fmt.Errorf("unexpected status %d: %s", status, body.message())
	}
}

// classifyTransport maps transport-level failures. Timeouts and refused
// connections both land on ErrUnavailable, with the cause kept in the
// message. They are never silent successes and never ErrNotFound.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", ErrUnavailable, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
