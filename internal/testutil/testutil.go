// Package testutil provides shared test helpers for setting up projects and
// index databases.
package testutil

import (
	"os"
	"testing"

	"github.com/verdin/raiz/internal/index"
	"github.com/verdin/raiz/internal/project"
	"github.com/verdin/raiz/internal/storage"
)

// TestDB creates a temporary SQLite index database that is automatically
// cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raiz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a temporary project directory and an open service
// over it.
func TestProject(t *testing.T) (storage.Provider, *project.Service) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc, err := project.NewService(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store, svc
}
