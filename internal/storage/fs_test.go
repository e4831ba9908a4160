package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("Alice said hello.\nBob replied warmly.\n")
	if err := s.Write("documents/interview1.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("documents/interview1.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestNewFSCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("root not created: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("documents/del.txt", []byte("bye"))
	if err := s.Delete("documents/del.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("documents/del.txt"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListFiltersTxt(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("documents/a.txt", []byte("a"))
	_ = s.Write("documents/b.txt", []byte("b"))
	_ = s.Write("documents/notes.md", []byte("not a document"))
	_ = s.Write("memos.json", []byte("{}"))

	items, err := s.List("documents")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempProject(t)
	items, err := s.List("documents")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicOverwrite(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("project_data.json", []byte(`{"codes":[]}`))
	updated := []byte(`{"codes":[{"name":"Greeting"}]}`)
	if err := s.Write("project_data.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("project_data.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("content = %q", got)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if len(e.Name()) > 9 && e.Name()[:9] == ".raiz-tmp" {
			t.Errorf("stale temp file: %s", e.Name())
		}
	}
}
