package project

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/codes"
	"github.com/verdin/raiz/internal/docstore"
	"github.com/verdin/raiz/internal/highlight"
	"github.com/verdin/raiz/internal/memos"
	"github.com/verdin/raiz/internal/models"
	"github.com/verdin/raiz/internal/storage"
)

// EventFunc is notified after service mutations, e.g. for SSE broadcasting.
// kind is one of "document_imported", "code_created", "code_renamed",
// "code_deleted", "fragment_added", "saved".
type EventFunc func(kind, name string)

// Service coordinates the project aggregate. It is the single mutator of
// domain state: a mutex serialises all operations, so the REST and MCP
// surfaces can share one instance. The project directory is assumed to be
// owned exclusively by this process; there is no cross-process locking.
type Service struct {
	mu sync.Mutex

	logger    *slog.Logger
	docs      *docstore.Store
	registry  *codes.Registry
	projector *highlight.Projector
	memoStore *memos.Store
	state     *Store

	docGroups map[string][]string

	// OnEvent, when set, receives mutation notifications. Called outside
	// domain invariant checks but inside the lock; keep handlers fast.
	OnEvent EventFunc
}

// NewService opens the project rooted at the given storage, loading and
// reconciling any persisted state.
func NewService(store storage.Provider, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	memoStore, err := memos.Open(store)
	if err != nil {
		return nil, err
	}
	registry := codes.NewRegistry()
	s := &Service{
		logger:    logger,
		docs:      docstore.New(store),
		registry:  registry,
		projector: highlight.NewProjector(registry, logger),
		memoStore: memoStore,
		state:     NewStore(store),
		docGroups: map[string][]string{models.RootGroup: {}},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads persisted state and rebuilds the in-memory structures.
func (s *Service) load() error {
	st, err := s.state.Load()
	if err != nil {
		return err
	}
	for _, name := range s.registry.LoadForest(st.Codes) {
		s.logger.Warn("project: unresolvable parent, code promoted to root",
			slog.String("code", name))
	}
	s.projector.Restore(st.Highlights)
	s.docGroups = st.DocGroups

	// Documents on disk that predate the state file (or were dropped in
	// externally) still belong to the project: fold them into the root group.
	names, err := s.docs.List()
	if err != nil {
		return err
	}
	known := make(map[string]struct{})
	for _, docs := range s.docGroups {
		for _, d := range docs {
			known[d] = struct{}{}
		}
	}
	for _, n := range names {
		if _, ok := known[n]; !ok {
			s.docGroups[models.RootGroup] = append(s.docGroups[models.RootGroup], n)
		}
	}
	return nil
}

// Save flushes the aggregate: the active document's highlights first, then
// the canonical cache rebuilt from the registry, then one atomic state
// write. Idempotent, and shared by explicit saves and the autosave ticker.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Service) saveLocked() error {
	highlights := s.projector.Rebuild()
	state := &models.ProjectState{
		Codes:      s.registry.All(),
		Documents:  s.allDocuments(),
		Highlights: highlights,
		DocGroups:  s.docGroups,
	}
	if err := s.state.Save(state); err != nil {
		return err
	}
	s.emit("saved", "")
	return nil
}

func (s *Service) allDocuments() []string {
	var out []string
	for _, docs := range s.docGroups {
		out = append(out, docs...)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func (s *Service) emit(kind, name string) {
	if s.OnEvent != nil {
		s.OnEvent(kind, name)
	}
}

// ImportDocument extracts and stores an external file, registers it under
// the given folder (empty means the root group), and persists the project.
func (s *Service) ImportDocument(srcPath, folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, _, err := s.docs.Import(srcPath)
	if err != nil {
		return "", err
	}
	s.registerDocumentLocked(name, folder)
	if err := s.saveLocked(); err != nil {
		return "", err
	}
	s.emit("document_imported", name)
	return name, nil
}

// RegisterDocument adds an already-stored document (e.g. dropped into the
// documents directory externally) to the given folder. No-op when the name
// is already registered.
func (s *Service) RegisterDocument(name, folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerDocumentLocked(name, folder)
}

func (s *Service) registerDocumentLocked(name, folder string) {
	for _, docs := range s.docGroups {
		for _, d := range docs {
			if d == name {
				return
			}
		}
	}
	if folder == "" {
		folder = models.RootGroup
	}
	s.docGroups[folder] = append(s.docGroups[folder], name)
}

// ReadDocument returns a document's stored plain text.
func (s *Service) ReadDocument(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs.Read(name)
}

// ListDocuments returns all document names in stable lexicographic order.
func (s *Service) ListDocuments() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs.List()
}

// DocumentGroups returns a copy of the folder grouping.
func (s *Service) DocumentGroups() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.docGroups))
	for k, v := range s.docGroups {
		out[k] = append([]string{}, v...)
	}
	return out
}

// CreateFolder adds an empty document folder.
func (s *Service) CreateFolder(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" || name == models.RootGroup {
		return fmt.Errorf("project: invalid folder name %q", name)
	}
	if _, exists := s.docGroups[name]; exists {
		return fmt.Errorf("project: folder %s: %w", name, apperr.ErrDuplicateName)
	}
	s.docGroups[name] = []string{}
	return nil
}

// MoveDocument moves a document to the named folder (empty for the root
// group), creating the folder if needed.
func (s *Service) MoveDocument(name, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if folder == "" {
		folder = models.RootGroup
	}
	found := false
	for g, docs := range s.docGroups {
		for i, d := range docs {
			if d == name {
				s.docGroups[g] = append(docs[:i], docs[i+1:]...)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return fmt.Errorf("project: document %s: %w", name, apperr.ErrNotFound)
	}
	s.docGroups[folder] = append(s.docGroups[folder], name)
	return s.saveLocked()
}

// OpenDocument activates a document for viewing: the previously active
// document's highlight state is flushed synchronously before the new text
// is served, so switching can never lose in-session annotations. Returns
// the text and the ordered render set.
func (s *Service) OpenDocument(name string) (string, []*models.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.docs.Read(name)
	if err != nil {
		return "", nil, err
	}
	view := s.projector.Enter(name, text)
	return text, cloneFragments(view), nil
}

// CloseDocument flushes the active document's highlights and returns the
// projector to idle. Safe to call when no document is open.
func (s *Service) CloseDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projector.Leave()
}

// ActiveDocument returns the currently open document name, empty when none.
func (s *Service) ActiveDocument() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Active()
}

// CreateCode adds a new code to the forest and persists the project.
func (s *Service) CreateCode(name, parent, color string) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.registry.Create(name, parent, color)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	s.emit("code_created", name)
	return c, nil
}

// AddFragment attaches a span of the given document to a code, validating
// offsets against the stored text when the document exists.
func (s *Service) AddFragment(codeName, document, text string, start, end int) (*models.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docLen := -1
	if stored, err := s.docs.Read(document); err == nil {
		docLen = len(stored)
	}
	frag, err := s.registry.AddFragment(codeName, models.Fragment{
		Text:     text,
		Document: document,
		Start:    start,
		End:      end,
	}, docLen)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	s.emit("fragment_added", codeName)
	return frag, nil
}

// cloneFragments copies fragments so a read snapshot is insulated from
// later mutations under the lock.
func cloneFragments(frags []*models.Fragment) []*models.Fragment {
	out := make([]*models.Fragment, len(frags))
	for i, f := range frags {
		cp := *f
		out[i] = &cp
	}
	return out
}

func cloneCode(c *models.Code) *models.Code {
	cp := *c
	cp.Fragments = cloneFragments(c.Fragments)
	return &cp
}

// Codes returns a snapshot of the code forest in creation order. The codes
// and their fragments are deep copies: callers encode or iterate them after
// the lock is released, while mutations keep appending to the live forest.
func (s *Service) Codes() []*models.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.registry.All()
	out := make([]*models.Code, len(all))
	for i, c := range all {
		out[i] = cloneCode(c)
	}
	return out
}

// GetCode returns a snapshot of one code by name.
func (s *Service) GetCode(name string) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("project: code %s: %w", name, apperr.ErrNotFound)
	}
	return cloneCode(c), nil
}

// UpdateCode applies rename, reparent, and recolor as one all-or-nothing
// mutation. Every requested change is validated against the registry before
// any of them is applied, so a rejected request leaves the forest untouched.
// Nil fields stay unchanged; rename is applied last so the parent lookup
// uses the old name. Returns a snapshot of the updated code.
func (s *Service) UpdateCode(name string, newName, parent, color *string) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("project: code %s: %w", name, apperr.ErrNotFound)
	}
	if parent != nil {
		if err := s.registry.CheckReparent(name, *parent); err != nil {
			return nil, err
		}
	}
	renaming := newName != nil && *newName != "" && *newName != name
	if renaming {
		if _, exists := s.registry.Get(*newName); exists {
			return nil, fmt.Errorf("project: code %s: %w", *newName, apperr.ErrDuplicateName)
		}
	}

	if parent != nil {
		// Checked above, cannot fail.
		_ = s.registry.Reparent(name, *parent)
	}
	if color != nil {
		c.Color = *color
	}
	finalName := name
	if renaming {
		_ = s.registry.Rename(name, *newName)
		if err := s.memoStore.Rename(name, *newName); err != nil {
			return nil, err
		}
		finalName = *newName
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	if renaming {
		s.emit("code_renamed", finalName)
	}
	return cloneCode(c), nil
}

// RenameCode renames a code, migrating its memo key atomically with respect
// to the in-memory aggregate, and persists the project.
func (s *Service) RenameCode(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.registry.Rename(oldName, newName); err != nil {
		return err
	}
	if err := s.memoStore.Rename(oldName, newName); err != nil {
		return err
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	s.emit("code_renamed", newName)
	return nil
}

// RecolorCode sets a code's color and persists the project. Fragments that
// inherited the old color keep it; only fragments without an explicit color
// follow the code's current color at render time.
func (s *Service) RecolorCode(name, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("project: code %s: %w", name, apperr.ErrNotFound)
	}
	c.Color = color
	return s.saveLocked()
}

// DeleteCode removes a code: children are promoted to the deleted code's
// parent, the code's fragments are dropped, and its memo is removed.
func (s *Service) DeleteCode(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	promoted, err := s.registry.Delete(name)
	if err != nil {
		return err
	}
	for _, p := range promoted {
		s.logger.Info("project: code promoted to new parent", slog.String("code", p))
	}
	if err := s.memoStore.Delete(name); err != nil {
		return err
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	s.emit("code_deleted", name)
	return nil
}

// SetMemo stores memo text for a code in the durable memo store.
func (s *Service) SetMemo(codeName, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry.Get(codeName); !ok {
		return fmt.Errorf("project: code %s: %w", codeName, apperr.ErrNotFound)
	}
	return s.memoStore.Set(codeName, text)
}

// GetMemo returns the memo text for a code, empty when none is set.
func (s *Service) GetMemo(codeName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoStore.Get(codeName)
}

// CodeBook returns the flattened depth-first traversal of the forest with
// memos resolved from the durable store.
func (s *Service) CodeBook() []models.CodeBookRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Flatten(s.memoStore.Get)
}

// Highlights returns a snapshot of the durable highlight cache entry for a
// document, nil when the document has none.
func (s *Service) Highlights(document string) []*models.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.projector.Cache()[document]
	if !ok {
		return nil
	}
	return cloneFragments(cached)
}

// Diary returns the coding diary text.
func (s *Service) Diary() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LoadDiary()
}

// SaveDiary writes the coding diary text.
func (s *Service) SaveDiary(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveDiary(text)
}
