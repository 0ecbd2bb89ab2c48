package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/db"
)

// setupTestDB creates a temporary SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database.DB
}
