// Package session tracks who the visitor is. The identity provider
// materializes the session as a small JSON file; Provider drives the
// email-link flow that mutates it, Observer keeps an in-memory snapshot and
// publishes every transition on a bus.
package session

// State is the visitor's standing with the identity provider.
type State string

const (
	// StateAnonymous means no session file, or a token past its expiry.
	StateAnonymous State = "anonymous"
	// StatePending means a sign-in link was emailed and not yet clicked.
	StatePending State = "pending"
	// StateVerified means the file holds a live bearer token.
	StateVerified State = "verified"
)

// Session is a point-in-time snapshot of the visitor's identity.
type Session struct {
	State      State  `json:"state"`
	IdentityID string `json:"identity_id,omitempty"`
	Email      string `json:"email,omitempty"`
}

func (s Session) Verified() bool {
	return s.State == StateVerified
}

func (s Session) Pending() bool {
	return s.State == StatePending
}
