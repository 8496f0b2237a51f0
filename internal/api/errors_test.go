package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"gone", http.StatusGone, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, ErrUnauthenticated},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStatus(tc.status, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
			}
		})
	}
}

func TestClassifyStatusValidation(t *testing.T) {
	err := classifyStatus(http.StatusUnprocessableEntity, &errorBody{Detail: "genres required"})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Detail != "genres required" {
		t.Fatalf("unexpected detail: %q", verr.Detail)
	}
}

func TestClassifyTransportKeepsCancellation(t *testing.T) {
	err := classifyTransport(context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to pass through, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("cancellation must not read as an outage")
	}
}

func TestClassifyTransportDeadline(t *testing.T) {
	err := classifyTransport(context.DeadlineExceeded)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
