package highlight

import (
	"testing"

	"github.com/verdin/raiz/internal/codes"
	"github.com/verdin/raiz/internal/models"
)

const docText = "Alice said hello. Bob replied warmly."

func setup(t *testing.T) (*codes.Registry, *Projector) {
	t.Helper()
	reg := codes.NewRegistry()
	return reg, NewProjector(reg, nil)
}

func addFrag(t *testing.T, reg *codes.Registry, code, doc, text string, start, end int) *models.Fragment {
	t.Helper()
	f, err := reg.AddFragment(code, models.Fragment{Text: text, Document: doc, Start: start, End: end}, -1)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestEnterOrdersByCreation(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	_, _ = reg.Create("B", "", "")
	f1 := addFrag(t, reg, "A", "d.txt", "Alice", 0, 5)
	f2 := addFrag(t, reg, "B", "d.txt", "Bob", 18, 21)
	addFrag(t, reg, "A", "other.txt", "warmly", 30, 36)

	view := p.Enter("d.txt", docText)
	if len(view) != 2 {
		t.Fatalf("view = %d fragments", len(view))
	}
	if view[0] != f1 || view[1] != f2 {
		t.Error("view not in creation order")
	}
}

func TestEnterDropsDriftedSilently(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	addFrag(t, reg, "A", "d.txt", "Alice", 0, 5)
	addFrag(t, reg, "A", "d.txt", "not in this document", 0, 20)

	view := p.Enter("d.txt", docText)
	if len(view) != 1 {
		t.Fatalf("view = %d, want drifted fragment dropped", len(view))
	}
	// Drifted fragment stays on the code for future resolution.
	c, _ := reg.Get("A")
	if len(c.Fragments) != 2 {
		t.Error("drifted fragment removed from code")
	}
}

func TestEnterInheritsCurrentCodeColor(t *testing.T) {
	reg, p := setup(t)
	c, _ := reg.Create("A", "", "#ffcc00")
	f := addFrag(t, reg, "A", "d.txt", "Alice", 0, 5)
	f.Color = "" // simulate a persisted fragment without a color

	c.Color = "#ff6f61" // recolored after the fragment was created
	view := p.Enter("d.txt", docText)
	if view[0].Color != "#ff6f61" {
		t.Errorf("color = %q, want current code color", view[0].Color)
	}
}

func TestEnterRepairsStaleOffsets(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	f := addFrag(t, reg, "A", "d.txt", "hello", 1, 3) // wrong on purpose
	f.Start, f.End = 0, 5                             // still wrong: text lives at [11,16)

	view := p.Enter("d.txt", docText)
	if len(view) != 1 || view[0].Start != 11 || view[0].End != 16 {
		t.Errorf("view[0] = %+v, want repaired [11,16)", view[0])
	}
}

func TestLeaveWritesCanonicalSet(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	addFrag(t, reg, "A", "d.txt", "Alice", 0, 5)

	p.Enter("d.txt", docText)
	// Fragment added while the document is open must land in the cache on
	// leave, because leave recomputes from the registry.
	addFrag(t, reg, "A", "d.txt", "Bob", 18, 21)
	p.Leave()

	cached := p.Cache()["d.txt"]
	if len(cached) != 2 {
		t.Errorf("cache = %d fragments, want 2", len(cached))
	}
	if p.Active() != "" {
		t.Error("projector not idle after leave")
	}
}

func TestEnterFlushesPreviousDocument(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	addFrag(t, reg, "A", "one.txt", "Alice", 0, 5)
	addFrag(t, reg, "A", "two.txt", "Bob", 18, 21)

	p.Enter("one.txt", docText)
	p.Enter("two.txt", docText) // implicit flush of one.txt

	if got := p.Cache()["one.txt"]; len(got) != 1 {
		t.Errorf("one.txt cache = %d fragments, want flushed before switch", len(got))
	}
	if p.Active() != "two.txt" {
		t.Errorf("active = %q", p.Active())
	}
}

func TestLeaveWhenIdleIsNoOp(t *testing.T) {
	_, p := setup(t)
	p.Leave()
	if len(p.Cache()) != 0 {
		t.Error("idle leave mutated cache")
	}
}

func TestRebuildCoversAllDocuments(t *testing.T) {
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	_, _ = reg.Create("B", "", "")
	addFrag(t, reg, "A", "one.txt", "x", 0, 1)
	addFrag(t, reg, "B", "one.txt", "y", 2, 3)
	addFrag(t, reg, "B", "two.txt", "z", 4, 5)

	cache := p.Rebuild()
	if len(cache["one.txt"]) != 2 || len(cache["two.txt"]) != 1 {
		t.Errorf("cache = %v", cache)
	}
}

func TestHighlightConsistency(t *testing.T) {
	// After N fragments across any number of codes, the set for the
	// document holds exactly those N, each once, in creation order.
	reg, p := setup(t)
	_, _ = reg.Create("A", "", "")
	_, _ = reg.Create("B", "", "")
	_, _ = reg.Create("C", "B", "")

	words := []struct {
		code string
		text string
	}{
		{"A", "Alice"}, {"B", "said"}, {"C", "hello"}, {"A", "Bob"}, {"C", "warmly"},
	}
	for _, w := range words {
		// Deliberately wrong offsets; resolution must still place each once.
		addFrag(t, reg, w.code, "d.txt", w.text, 0, len(w.text))
	}

	view := p.Enter("d.txt", docText)
	if len(view) != len(words) {
		t.Fatalf("view = %d, want %d", len(view), len(words))
	}
	seen := make(map[*models.Fragment]bool)
	for i, f := range view {
		if f.Text != words[i].text {
			t.Errorf("view[%d] = %q, want %q", i, f.Text, words[i].text)
		}
		if seen[f] {
			t.Errorf("fragment %q appears twice", f.Text)
		}
		seen[f] = true
	}
}
