// Package docstore owns the imported documents of a project: immutable
// plain-text files stored under documents/, served by name.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/importer"
	"github.com/verdin/raiz/internal/storage"
)

// Dir is the project subdirectory holding extracted document text.
const Dir = "documents"

// Store serves imported document text by name.
type Store struct {
	store storage.Provider
}

// New creates a document store over the given project storage.
func New(store storage.Provider) *Store {
	return &Store{store: store}
}

// Import extracts plain text from the external file at srcPath and stores it
// under the document's canonical name (base filename + .txt).
//
// Policy: re-importing a file whose document name already exists overwrites
// the stored text. The write is atomic, so readers never observe a torn
// document; there is no silent rename.
func (s *Store) Import(srcPath string) (string, string, error) {
	name, text, err := importer.Import(srcPath)
	if err != nil {
		return "", "", err
	}
	if err := s.store.Write(path.Join(Dir, name), []byte(text)); err != nil {
		return "", "", fmt.Errorf("docstore: store %s: %w", name, err)
	}
	return name, text, nil
}

// Read returns the stored plain text for a document.
func (s *Store) Read(name string) (string, error) {
	data, err := s.store.Read(path.Join(Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("docstore: %s: %w", name, apperr.ErrNotFound)
		}
		return "", err
	}
	return string(data), nil
}

// Exists reports whether a document of the given name is stored.
func (s *Store) Exists(name string) bool {
	_, err := s.store.Read(path.Join(Dir, name))
	return err == nil
}

// List returns all stored document names in stable lexicographic order.
func (s *Store) List() ([]string, error) {
	metas, err := s.store.List(Dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(metas))
	for _, m := range metas {
		names = append(names, path.Base(m.Path))
	}
	sort.Strings(names)
	return names, nil
}
