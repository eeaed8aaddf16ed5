// Package databasetest provides throwaway migrated databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"deepfocus/internal/database"
)

// New opens a fresh SQLite database in a temp directory, applies every
// migration and closes it when the test ends.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "planner_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a verified user with the given email and returns its ID.
func CreateUser(t testing.TB, db *database.DB, email string) int64 {
	t.Helper()

	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO users (email, full_name, email_verified) VALUES (?, ?, ?)", email, "Test User", true)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return id
}
