package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func signTestToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": sub, "exp": exp.Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSnapshotClassifiesStates(t *testing.T) {
	logger := zap.NewNop()

	s, token := snapshot(nil, logger)
	if s.State != StateAnonymous || token != "" {
		t.Fatalf("missing file: expected anonymous, got %+v token=%q", s, token)
	}

	s, token = snapshot(&fileState{LinkID: "link-1", Email: "reader@example.com"}, logger)
	if s.State != StatePending {
		t.Fatalf("pending marker: expected pending, got %s", s.State)
	}
	if s.Email != "reader@example.com" || token != "" {
		t.Fatalf("pending marker: expected email carried and no token, got %+v token=%q", s, token)
	}

	live := signTestToken(t, "reader-9", time.Now().Add(time.Hour))
	s, token = snapshot(&fileState{Token: live, Email: "reader@example.com"}, logger)
	if s.State != StateVerified || s.IdentityID != "reader-9" {
		t.Fatalf("live token: expected verified reader-9, got %+v", s)
	}
	if token != live {
		t.Fatalf("live token: expected token passthrough")
	}

	expired := signTestToken(t, "reader-9", time.Now().Add(-time.Hour))
	s, token = snapshot(&fileState{Token: expired}, logger)
	if s.State != StateAnonymous || token != "" {
		t.Fatalf("expired token: expected anonymous, got %+v token=%q", s, token)
	}

	s, token = snapshot(&fileState{Token: "not-a-jwt"}, logger)
	if s.State != StateAnonymous || token != "" {
		t.Fatalf("garbage token: expected anonymous, got %+v token=%q", s, token)
	}
}

func TestTokenIdentityRequiresSubject(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, _, err := tokenIdentity(raw); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestTokenIdentityWithoutExpiry(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "reader-1"}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	sub, expiresAt, err := tokenIdentity(raw)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if sub != "reader-1" || expiresAt != nil {
		t.Fatalf("expected reader-1 with no expiry, got %q %v", sub, expiresAt)
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	st, err := readState(path)
	if err != nil || st != nil {
		t.Fatalf("absent file: expected nil state, got %+v err=%v", st, err)
	}

	want := &fileState{LinkID: "link-1", Email: "reader@example.com"}
	if err := writeState(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	st, err = readState(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if st.LinkID != want.LinkID || st.Email != want.Email {
		t.Fatalf("expected %+v, got %+v", want, st)
	}

	if err := removeState(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := removeState(path); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}
