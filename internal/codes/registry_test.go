package codes

import (
	"errors"
	"testing"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/models"
)

func TestCreateAssignsPaletteRoundRobin(t *testing.T) {
	r := NewRegistry()
	first, err := r.Create("Greeting", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := r.Create("Tone", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Color != Palette[0] || second.Color != Palette[1] {
		t.Errorf("colors = %q, %q", first.Color, second.Color)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	r := NewRegistry()
	c, _ := r.Create("Greeting", "", "")
	frag := models.Fragment{Text: "hi", Document: "d.txt", Start: 0, End: 2}
	if _, err := r.AddFragment("Greeting", frag, -1); err != nil {
		t.Fatal(err)
	}

	_, err := r.Create("Greeting", "", "")
	if !errors.Is(err, apperr.ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	// First code and its fragments untouched.
	if got, _ := r.Get("Greeting"); got != c || len(got.Fragments) != 1 {
		t.Error("original code was disturbed by failed create")
	}
}

func TestCreateSubcodeAndCycleDetection(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("Greeting", "", "")
	sub, err := r.Create("FormalGreeting", "Greeting", "")
	if err != nil {
		t.Fatalf("Create subcode: %v", err)
	}
	if sub.Parent != "Greeting" {
		t.Errorf("parent = %q", sub.Parent)
	}

	// Parenting a code under its own descendant must fail and leave the
	// forest unchanged.
	err = r.Reparent("Greeting", "FormalGreeting")
	if !errors.Is(err, apperr.ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	g, _ := r.Get("Greeting")
	if g.Parent != "" {
		t.Errorf("Greeting.parent = %q after failed reparent", g.Parent)
	}
}

func TestReparentSelf(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("A", "", "")
	if err := r.Reparent("A", "A"); !errors.Is(err, apperr.ErrCycleDetected) {
		t.Errorf("err = %v, want ErrCycleDetected", err)
	}
}

func TestReparentDeepCycle(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("A", "", "")
	_, _ = r.Create("B", "A", "")
	_, _ = r.Create("C", "B", "")
	if err := r.Reparent("A", "C"); !errors.Is(err, apperr.ErrCycleDetected) {
		t.Errorf("err = %v, want ErrCycleDetected", err)
	}
	if err := r.Reparent("C", "A"); err != nil {
		t.Errorf("legal reparent failed: %v", err)
	}
}

func TestReparentToRoot(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("A", "", "")
	_, _ = r.Create("B", "A", "")
	if err := r.Reparent("B", ""); err != nil {
		t.Fatalf("Reparent: %v", err)
	}
	b, _ := r.Get("B")
	if b.Parent != "" {
		t.Errorf("parent = %q", b.Parent)
	}
}

func TestRenameUpdatesChildren(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("Greeting", "", "")
	_, _ = r.Create("FormalGreeting", "Greeting", "")

	if err := r.Rename("Greeting", "Salutation"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, ok := r.Get("Greeting"); ok {
		t.Error("old name still resolves")
	}
	child, _ := r.Get("FormalGreeting")
	if child.Parent != "Salutation" {
		t.Errorf("child.parent = %q", child.Parent)
	}
}

func TestRenameCollision(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("A", "", "")
	_, _ = r.Create("B", "", "")
	if err := r.Rename("A", "B"); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestDeletePromotesChildren(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("Root", "", "")
	_, _ = r.Create("Mid", "Root", "")
	_, _ = r.Create("Leaf", "Mid", "")

	promoted, err := r.Delete("Mid")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(promoted) != 1 || promoted[0] != "Leaf" {
		t.Errorf("promoted = %v", promoted)
	}
	leaf, _ := r.Get("Leaf")
	if leaf.Parent != "Root" {
		t.Errorf("leaf.parent = %q, want Root", leaf.Parent)
	}
	if _, ok := r.Get("Mid"); ok {
		t.Error("deleted code still resolves")
	}
}

func TestLoadForestTwoPass(t *testing.T) {
	r := NewRegistry()
	// Child listed before parent: two-pass construction must still link.
	records := []*models.Code{
		{Name: "FormalGreeting", Parent: "Greeting", Color: "#ffcc00"},
		{Name: "Greeting", Color: "#ff7043"},
		{Name: "Stray", Parent: "Missing", Color: "#4db6ac"},
	}
	orphans := r.LoadForest(records)

	if len(orphans) != 1 || orphans[0] != "Stray" {
		t.Errorf("orphans = %v", orphans)
	}
	stray, _ := r.Get("Stray")
	if stray.Parent != "" {
		t.Errorf("orphan parent = %q, want root", stray.Parent)
	}
	child, _ := r.Get("FormalGreeting")
	if child.Parent != "Greeting" {
		t.Errorf("child.parent = %q", child.Parent)
	}
}

func TestLoadForestBumpsColorCursor(t *testing.T) {
	r := NewRegistry()
	r.LoadForest([]*models.Code{
		{Name: "A", Color: Palette[0]},
		{Name: "B", Color: Palette[1]},
		{Name: "C", Color: Palette[2]},
	})
	if got := r.NextColor(); got != Palette[3] {
		t.Errorf("NextColor after load = %q, want %q", got, Palette[3])
	}
}

func TestLoadForestAssignsMissingColors(t *testing.T) {
	r := NewRegistry()
	r.LoadForest([]*models.Code{{Name: "A"}, {Name: "B"}})
	a, _ := r.Get("A")
	b, _ := r.Get("B")
	if a.Color == "" || b.Color == "" || a.Color == b.Color {
		t.Errorf("colors = %q, %q", a.Color, b.Color)
	}
}

func TestFlattenDepthFirst(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("A", "", "")
	_, _ = r.Create("B", "", "")
	_, _ = r.Create("A1", "A", "")
	_, _ = r.Create("A1a", "A1", "")
	_, _ = r.AddFragment("A", models.Fragment{Text: "x", Document: "d", Start: 0, End: 1}, -1)

	memos := map[string]string{"A1": "check tone"}
	rows := r.Flatten(func(name string) string { return memos[name] })

	want := []struct {
		depth int
		name  string
	}{
		{0, "A"}, {1, "A1"}, {2, "A1a"}, {0, "B"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i, w := range want {
		if rows[i].Depth != w.depth || rows[i].Name != w.name {
			t.Errorf("rows[%d] = %+v, want depth=%d name=%s", i, rows[i], w.depth, w.name)
		}
	}
	if rows[0].Count != 1 {
		t.Errorf("A count = %d", rows[0].Count)
	}
	if rows[1].Memo != "check tone" {
		t.Errorf("A1 memo = %q", rows[1].Memo)
	}
}
