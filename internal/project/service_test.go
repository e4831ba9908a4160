package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/models"
	"github.com/verdin/raiz/internal/storage"
)

func writeSource(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newService(t *testing.T, fs *storage.FS) *Service {
	t.Helper()
	s, err := NewService(fs, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestCodingFlow(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)

	src := writeSource(t, "interview.txt", "Alice said hello. Bob replied warmly.")
	name, err := s.ImportDocument(src, "")
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if name != "interview.txt" {
		t.Errorf("name = %q", name)
	}

	if _, err := s.CreateCode("Greeting", "", ""); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	frag, err := s.AddFragment("Greeting", name, "hello", 11, 16)
	if err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	if frag.Color == "" {
		t.Error("fragment did not inherit a color")
	}

	text, view, err := s.OpenDocument(name)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if text == "" || len(view) != 1 || view[0].Text != "hello" {
		t.Errorf("view = %+v", view)
	}
	s.CloseDocument()
	if s.ActiveDocument() != "" {
		t.Error("document still active after close")
	}
}

func TestAddFragmentValidatesAgainstStoredText(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	src := writeSource(t, "short.txt", "tiny")
	name, _ := s.ImportDocument(src, "")
	_, _ = s.CreateCode("A", "", "")

	_, err := s.AddFragment("A", name, "tiny!", 0, 5)
	if !errors.Is(err, apperr.ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestReopenPreservesEverything(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	src := writeSource(t, "interview.txt", "Alice said hello.")
	name, _ := s.ImportDocument(src, "")
	_, _ = s.CreateCode("Greeting", "", "")
	_, _ = s.CreateCode("Warm", "Greeting", "")
	_, _ = s.AddFragment("Greeting", name, "hello", 11, 16)
	if err := s.SetMemo("Greeting", "Watch for sarcasm"); err != nil {
		t.Fatalf("SetMemo: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate closing and reopening the application.
	s2 := newService(t, fs)
	if got := s2.GetMemo("Greeting"); got != "Watch for sarcasm" {
		t.Errorf("memo = %q", got)
	}
	c, err := s2.GetCode("Warm")
	if err != nil || c.Parent != "Greeting" {
		t.Errorf("Warm = %+v, %v", c, err)
	}
	g, _ := s2.GetCode("Greeting")
	if len(g.Fragments) != 1 || g.Fragments[0].Start != 11 {
		t.Errorf("fragments = %+v", g.Fragments)
	}
	if got := s2.Highlights(name); len(got) != 1 {
		t.Errorf("highlight cache = %+v", got)
	}
}

func TestRenameMigratesMemo(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	_, _ = s.CreateCode("Greeting", "", "")
	_ = s.SetMemo("Greeting", "note")
	if err := s.RenameCode("Greeting", "Salutation"); err != nil {
		t.Fatalf("RenameCode: %v", err)
	}
	if got := s.GetMemo("Salutation"); got != "note" {
		t.Errorf("memo = %q", got)
	}
	if got := s.GetMemo("Greeting"); got != "" {
		t.Errorf("old memo key survived: %q", got)
	}
}

func TestDeleteCodePromotesChildrenAndDropsMemo(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	_, _ = s.CreateCode("Root", "", "")
	_, _ = s.CreateCode("Mid", "Root", "")
	_, _ = s.CreateCode("Leaf", "Mid", "")
	_ = s.SetMemo("Mid", "gone soon")

	if err := s.DeleteCode("Mid"); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	leaf, err := s.GetCode("Leaf")
	if err != nil || leaf.Parent != "Root" {
		t.Errorf("Leaf = %+v, %v", leaf, err)
	}
	if _, err := s.GetCode("Mid"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Mid err = %v", err)
	}
	if s.GetMemo("Mid") != "" {
		t.Error("memo survived delete")
	}
}

func TestFoldersAndMove(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	src := writeSource(t, "a.txt", "content")
	name, _ := s.ImportDocument(src, "")

	if err := s.CreateFolder("Interviews"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := s.CreateFolder("Interviews"); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Errorf("duplicate folder err = %v", err)
	}
	if err := s.MoveDocument(name, "Interviews"); err != nil {
		t.Fatalf("MoveDocument: %v", err)
	}
	groups := s.DocumentGroups()
	if len(groups[models.RootGroup]) != 0 {
		t.Errorf("root group = %v", groups[models.RootGroup])
	}
	if got := groups["Interviews"]; len(got) != 1 || got[0] != name {
		t.Errorf("Interviews = %v", got)
	}

	// Grouping survives reopen.
	s2 := newService(t, fs)
	if got := s2.DocumentGroups()["Interviews"]; len(got) != 1 {
		t.Errorf("Interviews after reopen = %v", got)
	}
	if err := s2.MoveDocument("missing.txt", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("move missing err = %v", err)
	}
}

func TestExternalDocumentFoldedIntoRoot(t *testing.T) {
	fs := testFS(t)
	// A .txt dropped into documents/ outside the application.
	if err := fs.Write(filepath.Join("documents", "dropped.txt"), []byte("raw notes")); err != nil {
		t.Fatal(err)
	}
	s := newService(t, fs)
	root := s.DocumentGroups()[models.RootGroup]
	if len(root) != 1 || root[0] != "dropped.txt" {
		t.Errorf("root group = %v", root)
	}
}

func TestCorruptStateRefusesToOpen(t *testing.T) {
	fs := testFS(t)
	if err := fs.Write(StateFile, []byte("][")); err != nil {
		t.Fatal(err)
	}
	if _, err := NewService(fs, nil); !errors.Is(err, apperr.ErrCorruptState) {
		t.Errorf("err = %v, want ErrCorruptState", err)
	}
}

func TestCodeBookResolvesMemos(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	_, _ = s.CreateCode("Theme", "", "")
	_, _ = s.CreateCode("Sub", "Theme", "")
	_ = s.SetMemo("Sub", "narrow this down")

	rows := s.CodeBook()
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1].Name != "Sub" || rows[1].Depth != 1 || rows[1].Memo != "narrow this down" {
		t.Errorf("row = %+v", rows[1])
	}
}

func TestDiaryThroughService(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	if err := s.SaveDiary("entry one\n"); err != nil {
		t.Fatalf("SaveDiary: %v", err)
	}
	got, err := s.Diary()
	if err != nil || got != "entry one\n" {
		t.Errorf("Diary = %q, %v", got, err)
	}
}

func TestReadSnapshotsInsulatedFromMutations(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	src := writeSource(t, "d.txt", "Alice said hello. Bob replied.")
	name, _ := s.ImportDocument(src, "")
	_, _ = s.CreateCode("A", "", "#ffcc00")
	_, _ = s.AddFragment("A", name, "hello", 11, 16)

	// Snapshots taken before further mutations must not observe them:
	// handlers encode these after the service lock is released.
	codesBefore := s.Codes()
	codeBefore, err := s.GetCode("A")
	if err != nil {
		t.Fatal(err)
	}

	_, _ = s.AddFragment("A", name, "Bob", 18, 21)
	if err := s.RecolorCode("A", "#ff6f61"); err != nil {
		t.Fatal(err)
	}

	if len(codesBefore[0].Fragments) != 1 || len(codeBefore.Fragments) != 1 {
		t.Errorf("snapshot grew with later mutations: %d, %d fragments",
			len(codesBefore[0].Fragments), len(codeBefore.Fragments))
	}
	if codesBefore[0].Color != "#ffcc00" {
		t.Errorf("snapshot color = %q, want the color at snapshot time", codesBefore[0].Color)
	}

	// Writes through a snapshot must not reach the live forest.
	codeBefore.Fragments[0].Text = "tampered"
	live, _ := s.GetCode("A")
	if live.Fragments[0].Text != "hello" {
		t.Errorf("live fragment = %q, snapshot write leaked through", live.Fragments[0].Text)
	}
}

func TestUpdateCodeAllOrNothing(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	_, _ = s.CreateCode("Parent", "", "")
	_, _ = s.CreateCode("Child", "", "")
	_, _ = s.CreateCode("Taken", "", "")

	// A valid reparent combined with a colliding rename: nothing may apply.
	parent := "Parent"
	taken := "Taken"
	if _, err := s.UpdateCode("Child", &taken, &parent, nil); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	c, err := s.GetCode("Child")
	if err != nil {
		t.Fatal(err)
	}
	if c.Parent != "" {
		t.Errorf("parent = %q, rejected update partially applied", c.Parent)
	}

	// The happy path applies all three fields and migrates the memo.
	_ = s.SetMemo("Child", "keep me")
	renamed := "Kid"
	color := "#aed581"
	updated, err := s.UpdateCode("Child", &renamed, &parent, &color)
	if err != nil {
		t.Fatalf("UpdateCode: %v", err)
	}
	if updated.Name != "Kid" || updated.Parent != "Parent" || updated.Color != "#aed581" {
		t.Errorf("updated = %+v", updated)
	}
	if got := s.GetMemo("Kid"); got != "keep me" {
		t.Errorf("memo = %q", got)
	}
}

func TestEventsEmitted(t *testing.T) {
	fs := testFS(t)
	s := newService(t, fs)
	var kinds []string
	s.OnEvent = func(kind, name string) { kinds = append(kinds, kind) }

	src := writeSource(t, "a.txt", "hello there")
	name, _ := s.ImportDocument(src, "")
	_, _ = s.CreateCode("A", "", "")
	_, _ = s.AddFragment("A", name, "hello", 0, 5)

	want := map[string]bool{"document_imported": false, "code_created": false, "fragment_added": false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("event %q not emitted", k)
		}
	}
}
