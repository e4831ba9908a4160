// Package project owns the aggregate: the consolidated persisted state, the
// reconciliation performed on load, and the service that coordinates
// documents, codes, highlights, and memos for one open project.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/models"
	"github.com/verdin/raiz/internal/storage"
)

const (
	// StateFile is the consolidated project state, one JSON document per project.
	StateFile = "project_data.json"
	// DiaryFile holds the free-text coding diary.
	DiaryFile = "diary.txt"
)

// Store serialises and deserialises the project aggregate.
type Store struct {
	store storage.Provider
}

// NewStore creates a state store over the given project storage.
func NewStore(store storage.Provider) *Store {
	return &Store{store: store}
}

// Save writes the consolidated state. The underlying write is atomic
// (temp + fsync + rename), so a crash mid-save never truncates the previous
// state file.
func (s *Store) Save(state *models.ProjectState) error {
	if state.Codes == nil {
		state.Codes = []*models.Code{}
	}
	if state.Documents == nil {
		state.Documents = []string{}
	}
	if state.Highlights == nil {
		state.Highlights = map[string][]*models.Fragment{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("project: marshal state: %w", err)
	}
	if err := s.store.Write(StateFile, data); err != nil {
		return fmt.Errorf("project: save state: %w", err)
	}
	return nil
}

// Load reads the consolidated state. A missing file yields empty defaults
// (a brand-new project); a present but unparseable file fails with
// apperr.ErrCorruptState — the two must never be conflated. When doc_groups
// is absent the flat documents list becomes a single root group.
func (s *Store) Load() (*models.ProjectState, error) {
	data, err := s.store.Read(StateFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &models.ProjectState{
				Codes:      []*models.Code{},
				Documents:  []string{},
				Highlights: map[string][]*models.Fragment{},
				DocGroups:  map[string][]string{models.RootGroup: {}},
			}, nil
		}
		return nil, fmt.Errorf("project: load state: %w", err)
	}
	var state models.ProjectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("project: parse %s: %v: %w", StateFile, err, apperr.ErrCorruptState)
	}
	if state.Codes == nil {
		state.Codes = []*models.Code{}
	}
	if state.Highlights == nil {
		state.Highlights = map[string][]*models.Fragment{}
	}
	if state.DocGroups == nil {
		state.DocGroups = map[string][]string{models.RootGroup: append([]string{}, state.Documents...)}
	}
	if _, ok := state.DocGroups[models.RootGroup]; !ok {
		state.DocGroups[models.RootGroup] = []string{}
	}
	return &state, nil
}

// LoadDiary returns the coding diary text, empty when none exists yet.
func (s *Store) LoadDiary() (string, error) {
	data, err := s.store.Read(DiaryFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("project: load diary: %w", err)
	}
	return string(data), nil
}

// SaveDiary writes the coding diary.
func (s *Store) SaveDiary(text string) error {
	if err := s.store.Write(DiaryFile, []byte(text)); err != nil {
		return fmt.Errorf("project: save diary: %w", err)
	}
	return nil
}
