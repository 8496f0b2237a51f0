package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIdentity extracts the subject and expiry from a bearer token without
// verifying the signature. The backend is the verifier; the client only
// needs the claims to label the session.
func tokenIdentity(raw string) (string, *time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", nil, fmt.Errorf("session: parse token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", nil, errors.New("session: token has no subject")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", nil, fmt.Errorf("session: token expiry: %w", err)
	}

	var expiresAt *time.Time
	if exp != nil {
		expiresAt = &exp.Time
	}
	return sub, expiresAt, nil
}
