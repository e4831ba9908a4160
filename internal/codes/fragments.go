package codes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/models"
)

// AddFragment attaches a coded span to the named code, appending in creation
// order. docLen is the length of the owning document's text, or negative when
// the caller cannot validate against it. A fragment without an explicit color
// inherits the code's color at creation time.
//
// Fails with apperr.ErrNotFound when the code is absent and
// apperr.ErrInvalidRange when start >= end, start < 0, or end exceeds docLen.
// On failure nothing is stored.
func (r *Registry) AddFragment(codeName string, frag models.Fragment, docLen int) (*models.Fragment, error) {
	c, ok := r.byName[codeName]
	if !ok {
		return nil, fmt.Errorf("codes: %s: %w", codeName, apperr.ErrNotFound)
	}
	if frag.Start < 0 || frag.Start >= frag.End {
		return nil, fmt.Errorf("codes: fragment [%d,%d): %w", frag.Start, frag.End, apperr.ErrInvalidRange)
	}
	if docLen >= 0 && frag.End > docLen {
		return nil, fmt.Errorf("codes: fragment end %d past document length %d: %w", frag.End, docLen, apperr.ErrInvalidRange)
	}
	if frag.Color == "" {
		frag.Color = c.Color
	}
	stored := frag
	stored.Seq = r.fragSeq
	r.fragSeq++
	c.Fragments = append(c.Fragments, &stored)
	c.Count = len(c.Fragments)
	return &stored, nil
}

// ResolveOffsets returns the fragment's location in docText. When the stored
// offsets still bound the verbatim snippet they are returned unchanged; when
// they have drifted, the first occurrence of the snippet is located and the
// repaired offsets are written back onto the fragment, so subsequent calls
// take the fast path. An empty or unlocatable snippet fails with
// apperr.ErrOffsetDrift; the fragment itself is left untouched in that case.
func ResolveOffsets(frag *models.Fragment, docText string) (int, int, error) {
	if frag.Start >= 0 && frag.End <= len(docText) && frag.Start < frag.End &&
		docText[frag.Start:frag.End] == frag.Text {
		return frag.Start, frag.End, nil
	}
	if frag.Text == "" {
		return 0, 0, fmt.Errorf("codes: empty fragment text: %w", apperr.ErrOffsetDrift)
	}
	idx := strings.Index(docText, frag.Text)
	if idx < 0 {
		return 0, 0, fmt.Errorf("codes: fragment %q not found in %s: %w", snippet(frag.Text), frag.Document, apperr.ErrOffsetDrift)
	}
	frag.Start = idx
	frag.End = idx + len(frag.Text)
	return frag.Start, frag.End, nil
}

// FragmentsFor returns every fragment across all codes whose document
// matches name, in global creation order. Annotations made on different
// codes interleave by their sequence numbers, not grouped per code, so the
// latest overlapping annotation always renders last.
func (r *Registry) FragmentsFor(document string) []*models.Fragment {
	var out []*models.Fragment
	for _, c := range r.codes {
		for _, f := range c.Fragments {
			if f.Document == document {
				out = append(out, f)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Owner returns the code owning the given fragment, or nil.
func (r *Registry) Owner(frag *models.Fragment) *models.Code {
	for _, c := range r.codes {
		for _, f := range c.Fragments {
			if f == frag {
				return c
			}
		}
	}
	return nil
}

func snippet(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
