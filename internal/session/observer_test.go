package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func awaitTransition(t *testing.T, ch <-chan Session) Session {
	t.Helper()

	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session transition")
		return Session{}
	}
}

func TestObserverPublishesTransitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	obs := NewObserver(path, zap.NewNop())
	obs.poll = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer obs.Close()

	if err := obs.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if got := obs.Current().State; got != StateAnonymous {
		t.Fatalf("expected anonymous start, got %s", got)
	}

	transitions, err := obs.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := writeState(path, &fileState{LinkID: "link-1", Email: "reader@example.com"}); err != nil {
		t.Fatalf("write pending: %v", err)
	}

	next := awaitTransition(t, transitions)
	if next.State != StatePending {
		t.Fatalf("expected pending, got %s", next.State)
	}

	token := signTestToken(t, "reader-1", time.Now().Add(time.Hour))
	if err := writeState(path, &fileState{Token: token, Email: "reader@example.com"}); err != nil {
		t.Fatalf("write verified: %v", err)
	}

	next = awaitTransition(t, transitions)
	if next.State != StateVerified {
		t.Fatalf("expected verified, got %s", next.State)
	}
	if next.IdentityID != "reader-1" {
		t.Fatalf("expected identity reader-1, got %q", next.IdentityID)
	}
	if obs.Token() != token {
		t.Fatal("expected bearer token exposed while verified")
	}

	if err := removeState(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	next = awaitTransition(t, transitions)
	if next.State != StateAnonymous {
		t.Fatalf("expected anonymous after sign-out, got %s", next.State)
	}
	if obs.Token() != "" {
		t.Fatal("expected no token after sign-out")
	}
}

func TestObserverInitialSnapshotWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	token := signTestToken(t, "reader-2", time.Now().Add(time.Hour))
	if err := writeState(path, &fileState{Token: token}); err != nil {
		t.Fatalf("write: %v", err)
	}

	obs := NewObserver(path, zap.NewNop())
	defer obs.Close()

	got := obs.Current()
	if got.State != StateVerified || got.IdentityID != "reader-2" {
		t.Fatalf("expected verified reader-2 before Start, got %+v", got)
	}
}

func TestObserverCloseIsIdempotentEnough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	obs := NewObserver(path, zap.NewNop())
	if err := obs.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := obs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
