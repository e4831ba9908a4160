// Package memos persists per-code analytic memos. The memo map is the
// canonical memo source for a project: it is loaded fully at open and
// rewritten in full on every mutation, keyed by code name.
package memos

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/verdin/raiz/internal/storage"
)

// File is the memo store's file name inside the project directory.
const File = "memos.json"

// Store holds the memo map for one project.
type Store struct {
	store storage.Provider
	memos map[string]string
}

// Open loads the memo map from the project directory. A missing file yields
// an empty map; an unreadable one is replaced by an empty map on the next
// write (leniency for hand-edited files, matching the state-load policy for
// non-primary data).
func Open(store storage.Provider) (*Store, error) {
	s := &Store{store: store, memos: make(map[string]string)}
	data, err := store.Read(File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("memos: open: %w", err)
	}
	if err := json.Unmarshal(data, &s.memos); err != nil {
		s.memos = make(map[string]string)
	}
	return s, nil
}

// Get returns the memo text for a code, empty when none is set.
func (s *Store) Get(codeName string) string {
	return s.memos[codeName]
}

// Set stores memo text for a code and flushes the whole map.
// Setting empty text removes the entry.
func (s *Store) Set(codeName, text string) error {
	if text == "" {
		delete(s.memos, codeName)
	} else {
		s.memos[codeName] = text
	}
	return s.flush()
}

// Delete removes a code's memo.
func (s *Store) Delete(codeName string) error {
	if _, ok := s.memos[codeName]; !ok {
		return nil
	}
	delete(s.memos, codeName)
	return s.flush()
}

// Rename migrates a memo from oldName to newName in a single write, so a
// code rename never orphans its memo.
func (s *Store) Rename(oldName, newName string) error {
	text, ok := s.memos[oldName]
	if !ok {
		return nil
	}
	delete(s.memos, oldName)
	s.memos[newName] = text
	return s.flush()
}

// All returns a copy of the memo map.
func (s *Store) All() map[string]string {
	out := make(map[string]string, len(s.memos))
	for k, v := range s.memos {
		out[k] = v
	}
	return out
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.memos, "", "  ")
	if err != nil {
		return fmt.Errorf("memos: marshal: %w", err)
	}
	if err := s.store.Write(File, data); err != nil {
		return fmt.Errorf("memos: flush: %w", err)
	}
	return nil
}
