// Package codes owns the hierarchical code forest and the fragments attached
// to each code. The forest is an explicit data structure: presentation layers
// request mutations (Create, Rename, Reparent, Delete) and render projections,
// they never own structure.
package codes

import (
	"fmt"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/models"
)

// Registry manages the code forest. Names are unique across the whole
// project; parent links always reference an existing code or are empty.
// Registry is not safe for concurrent use; the project service serialises
// access.
type Registry struct {
	codes  []*models.Code // creation order
	byName map[string]*models.Code

	// colorCursor is the round-robin palette position. It lives on the
	// registry, not in package state, and is bumped on load so reopening a
	// project does not immediately reuse colors.
	colorCursor int

	// fragSeq is the next project-wide fragment sequence number. Stamped
	// onto every stored fragment so per-document render order stays global
	// creation order even when annotations interleave across codes.
	fragSeq int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*models.Code), fragSeq: 1}
}

// Len returns the number of codes.
func (r *Registry) Len() int { return len(r.codes) }

// All returns the codes in creation order. The slice is shared; callers must
// not mutate it.
func (r *Registry) All() []*models.Code { return r.codes }

// Get returns the code with the given name.
func (r *Registry) Get(name string) (*models.Code, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Create adds a new code. parent may be empty for a root; color may be empty
// to take the next palette color. Fails with apperr.ErrDuplicateName when the
// name exists anywhere in the forest and apperr.ErrNotFound when the parent
// does not exist.
func (r *Registry) Create(name, parent, color string) (*models.Code, error) {
	if name == "" {
		return nil, fmt.Errorf("codes: name is required")
	}
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("codes: %s: %w", name, apperr.ErrDuplicateName)
	}
	if parent != "" {
		if _, ok := r.byName[parent]; !ok {
			return nil, fmt.Errorf("codes: parent %s: %w", parent, apperr.ErrNotFound)
		}
	}
	if color == "" {
		color = r.NextColor()
	}
	c := &models.Code{Name: name, Parent: parent, Color: color}
	r.codes = append(r.codes, c)
	r.byName[name] = c
	return c, nil
}

// Rename changes a code's name. Child parent pointers follow the rename.
// Fails with apperr.ErrDuplicateName when the target name exists.
func (r *Registry) Rename(oldName, newName string) error {
	c, ok := r.byName[oldName]
	if !ok {
		return fmt.Errorf("codes: %s: %w", oldName, apperr.ErrNotFound)
	}
	if newName == "" || newName == oldName {
		return nil
	}
	if _, exists := r.byName[newName]; exists {
		return fmt.Errorf("codes: %s: %w", newName, apperr.ErrDuplicateName)
	}
	delete(r.byName, oldName)
	c.Name = newName
	r.byName[newName] = c
	for _, other := range r.codes {
		if other.Parent == oldName {
			other.Parent = newName
		}
	}
	return nil
}

// CheckReparent validates a reparent without applying it, with the same
// failure modes as Reparent. Lets callers verify a batch of changes before
// committing any of them.
func (r *Registry) CheckReparent(name, newParent string) error {
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("codes: %s: %w", name, apperr.ErrNotFound)
	}
	if newParent == "" {
		return nil
	}
	if _, ok := r.byName[newParent]; !ok {
		return fmt.Errorf("codes: parent %s: %w", newParent, apperr.ErrNotFound)
	}
	// Walk up from newParent; hitting name means newParent is inside
	// name's subtree.
	for cur := newParent; cur != ""; {
		if cur == name {
			return fmt.Errorf("codes: %s under %s: %w", name, newParent, apperr.ErrCycleDetected)
		}
		p, ok := r.byName[cur]
		if !ok {
			break
		}
		cur = p.Parent
	}
	return nil
}

// Reparent moves a code under newParent (empty for root). Fails with
// apperr.ErrCycleDetected when newParent is the code itself or one of its
// descendants; the forest is unchanged on failure.
func (r *Registry) Reparent(name, newParent string) error {
	if err := r.CheckReparent(name, newParent); err != nil {
		return err
	}
	r.byName[name].Parent = newParent
	return nil
}

// Delete removes a code. Its children are promoted to the deleted code's
// parent (no cascade); its fragments are dropped with it. Returns the names
// of the promoted children.
func (r *Registry) Delete(name string) ([]string, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("codes: %s: %w", name, apperr.ErrNotFound)
	}
	var promoted []string
	for _, other := range r.codes {
		if other.Parent == name {
			other.Parent = c.Parent
			promoted = append(promoted, other.Name)
		}
	}
	delete(r.byName, name)
	for i, other := range r.codes {
		if other == c {
			r.codes = append(r.codes[:i], r.codes[i+1:]...)
			break
		}
	}
	return promoted, nil
}

// Children returns the direct children of name in creation order.
func (r *Registry) Children(name string) []*models.Code {
	var out []*models.Code
	for _, c := range r.codes {
		if c.Parent == name {
			out = append(out, c)
		}
	}
	return out
}

// NextColor returns the next palette color, advancing the round-robin cursor.
func (r *Registry) NextColor() string {
	color := Palette[r.colorCursor%len(Palette)]
	r.colorCursor++
	return color
}

// LoadForest replaces the registry contents with the given flat records,
// reconstructing the forest in two passes: first all nodes, then parent
// links by name lookup, so record order never matters. A parent that fails
// to resolve degrades the node to a root; those names are returned for the
// caller to log. Colorless codes take the next palette color, and the color
// cursor is bumped to at least the code count so reopening a project does
// not collide with existing colors.
func (r *Registry) LoadForest(records []*models.Code) (orphans []string) {
	r.codes = make([]*models.Code, 0, len(records))
	r.byName = make(map[string]*models.Code, len(records))

	for _, rec := range records {
		if rec == nil || rec.Name == "" {
			continue
		}
		if _, dup := r.byName[rec.Name]; dup {
			continue
		}
		r.codes = append(r.codes, rec)
		r.byName[rec.Name] = rec
	}
	for _, c := range r.codes {
		if c.Parent == "" {
			continue
		}
		if _, ok := r.byName[c.Parent]; !ok {
			orphans = append(orphans, c.Name)
			c.Parent = ""
		}
	}
	for _, c := range r.codes {
		if c.Color == "" {
			c.Color = r.NextColor()
		}
		c.Count = len(c.Fragments)
	}
	if r.colorCursor < len(r.codes) {
		r.colorCursor = len(r.codes)
	}

	// Restore the sequence counter past every persisted fragment. Fragments
	// from state files written before sequence numbers were recorded carry
	// zero; stamp them in code order, the only order those files preserve.
	maxSeq := 0
	for _, c := range r.codes {
		for _, f := range c.Fragments {
			if f.Seq > maxSeq {
				maxSeq = f.Seq
			}
		}
	}
	r.fragSeq = maxSeq + 1
	for _, c := range r.codes {
		for _, f := range c.Fragments {
			if f.Seq == 0 {
				f.Seq = r.fragSeq
				r.fragSeq++
			}
		}
	}
	return orphans
}

// Flatten returns the depth-first traversal of the forest as code book rows,
// roots in creation order. memo resolves a code's memo text and may be nil.
func (r *Registry) Flatten(memo func(name string) string) []models.CodeBookRow {
	var rows []models.CodeBookRow
	var walk func(c *models.Code, depth int)
	walk = func(c *models.Code, depth int) {
		m := ""
		if memo != nil {
			m = memo(c.Name)
		}
		rows = append(rows, models.CodeBookRow{
			Depth: depth,
			Name:  c.Name,
			Memo:  m,
			Count: len(c.Fragments),
		})
		for _, child := range r.Children(c.Name) {
			walk(child, depth+1)
		}
	}
	for _, c := range r.codes {
		if c.Parent == "" {
			walk(c, 0)
		}
	}
	return rows
}
