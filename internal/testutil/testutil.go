// Package testutil provides shared test helpers for setting up databases and
// upload directories.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/tasknote/internal/repo"
	"github.com/starford/tasknote/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *repo.DB {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestUploads creates a temporary upload directory with a storage.Provider.
func TestUploads(t *testing.T) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	return fs
}
