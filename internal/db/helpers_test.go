package db_test

import (
	"context"
	"testing"

	"github.com/meridianlab/fieldstation/internal/db"
)

func createTestUser(t *testing.T, pool db.Pool, email string) string {
	t.Helper()

	userID, err := db.GetOrCreateUser(context.Background(), pool, email)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

func createTestAdmin(t *testing.T, pool db.Pool, email string) string {
	t.Helper()

	userID := createTestUser(t, pool, email)
	if err := db.SetUserRole(context.Background(), pool, userID, "admin"); err != nil {
		t.Fatalf("Failed to promote test user: %v", err)
	}
	return userID
}
