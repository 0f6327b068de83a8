package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/store"
)

// NewTestStore opens a migrated in-memory store, closed at test end. It
// backs the dev server behind NewFakeAPI as well as the store tests, so
// every test gets its own users, tokens and todos.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test store")

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}
