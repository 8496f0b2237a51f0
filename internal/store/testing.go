package store

import (
	"testing"

	"go.uber.org/zap"
)

// OpenMemory opens an in-memory store for testing. MaxOpenConns(1) keeps
// every query on the same connection, since each connection to ":memory:"
// would otherwise get its own database.
func OpenMemory(tb testing.TB) *Store {
	tb.Helper()
	s, err := Open(":memory:", zap.NewNop())
	if err != nil {
		tb.Fatalf("store.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	tb.Cleanup(func() { s.Close() })
	return s
}
