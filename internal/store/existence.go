package store

import (
	"context"
	"fmt"
)

// Existence is the memoized answer to "does this identity already have a
// remote profile". Unknown means the question has not been answered this
// session; an unreachable backend never writes a value, so Unknown and
// Absent stay distinguishable.
type Existence string

const (
	ExistenceUnknown Existence = "unknown"
	ExistenceExists  Existence = "exists"
	ExistenceAbsent  Existence = "absent"
)

// Existence returns the memoized remote-profile existence for the current
// session, ExistenceUnknown when nothing has been memoized yet.
func (s *Store) Existence(ctx context.Context) (Existence, error) {
	data, found, err := s.get(ctx, keyExistence)
	if err != nil {
		return ExistenceUnknown, err
	}
	if !found {
		return ExistenceUnknown, nil
	}

	switch e := Existence(data); e {
	case ExistenceExists, ExistenceAbsent:
		return e, nil
	default:
		return ExistenceUnknown, fmt.Errorf("store: unexpected existence memo %q", data)
	}
}

// SetExistence memoizes the resolved existence. Only definite answers are
// accepted; callers must not memoize Unknown.
func (s *Store) SetExistence(ctx context.Context, e Existence) error {
	if e != ExistenceExists && e != ExistenceAbsent {
		return fmt.Errorf("store: refusing to memoize existence %q", e)
	}
	return s.set(ctx, keyExistence, []byte(e))
}
