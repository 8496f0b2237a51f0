package reconcile

import (
	"fmt"

	"github.com/beldeezy/readar-sub000/internal/session"
)

// Fingerprint derives the scenario identity used by the dedup guard. Any
// input changing (resolved identity, draft presence, requested limit)
// changes the string itself, so a stale claim can never suppress a new
// scenario.
func Fingerprint(sess session.Session, hasDraft bool, limit int) string {
	id := "anon"
	if sess.Verified() && sess.IdentityID != "" {
		id = sess.IdentityID
	}
	return fmt.Sprintf("v1|%s|draft=%t|limit=%d", id, hasDraft, limit)
}
