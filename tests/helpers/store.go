// Package helpers provides shared test fixtures.
package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/trainchat/internal/domain"
	"github.com/xiaot623/trainchat/internal/store"
)

// NewTestSQLiteStore opens an in-memory store that is closed with the test.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestUser creates a user for tests.
func NewTestUser(t *testing.T, s store.Store, email string) *domain.User {
	t.Helper()

	user, _, err := s.FindOrCreateUser(context.Background(), email, "Tester")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
