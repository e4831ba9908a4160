// Package highlight derives, for a given document, the ordered set of
// fragments to render, and keeps the durable per-document highlight cache
// consistent when the active document changes.
package highlight

import (
	"log/slog"

	"github.com/verdin/raiz/internal/codes"
	"github.com/verdin/raiz/internal/models"
)

// Projector is the per-session view-state machine: Idle, or active on one
// document at a time. Entering a document snapshots and resolves its
// fragments; leaving recomputes the canonical highlight set from the
// registry and writes it into the cache, never the transient view.
type Projector struct {
	registry *codes.Registry
	logger   *slog.Logger

	cache map[string][]*models.Fragment // durable, keyed by document name

	active string             // "" when idle
	view   []*models.Fragment // resolved render set for the active document
}

// NewProjector creates an idle projector over the given registry.
func NewProjector(registry *codes.Registry, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		registry: registry,
		logger:   logger,
		cache:    make(map[string][]*models.Fragment),
	}
}

// Enter activates a document and returns its ordered render set. Any
// previously active document is flushed first, synchronously, so its
// annotations are durably captured before the new text is considered loaded.
//
// For each fragment of the document, in creation order: a fragment without
// an explicit color inherits its owning code's current color (codes may have
// been recolored since the fragment was created); offsets are resolved with
// the self-healing fallback; fragments whose text cannot be located are
// dropped from the render set with a data-quality warning, never an error.
func (p *Projector) Enter(document, text string) []*models.Fragment {
	if p.active != "" {
		p.Leave()
	}
	p.active = document
	p.view = p.view[:0]

	for _, frag := range p.registry.FragmentsFor(document) {
		if frag.Color == "" {
			if owner := p.registry.Owner(frag); owner != nil && owner.Color != "" {
				frag.Color = owner.Color
			} else {
				frag.Color = codes.DefaultColor
			}
		}
		if _, _, err := codes.ResolveOffsets(frag, text); err != nil {
			p.logger.Warn("highlight: fragment skipped",
				slog.String("document", document),
				slog.String("error", err.Error()))
			continue
		}
		p.view = append(p.view, frag)
	}
	return p.view
}

// Leave flushes the active document's canonical highlight set into the cache
// and returns the projector to idle. The set is recomputed from the registry,
// not from the in-view list, so view-only state can never leak into the
// durable cache. No-op when idle.
func (p *Projector) Leave() {
	if p.active == "" {
		return
	}
	p.cache[p.active] = p.registry.FragmentsFor(p.active)
	p.active = ""
	p.view = nil
}

// Active returns the active document name, empty when idle.
func (p *Projector) Active() string { return p.active }

// View returns the active document's resolved render set.
func (p *Projector) View() []*models.Fragment { return p.view }

// Rebuild recomputes the whole cache from the registry: one entry per
// document touched by at least one fragment, each in global creation order.
// Called on save so the persisted cache can never diverge from the codes'
// fragment lists.
func (p *Projector) Rebuild() map[string][]*models.Fragment {
	docs := make(map[string]struct{})
	for _, c := range p.registry.All() {
		for _, f := range c.Fragments {
			docs[f.Document] = struct{}{}
		}
	}
	rebuilt := make(map[string][]*models.Fragment, len(docs))
	for doc := range docs {
		rebuilt[doc] = p.registry.FragmentsFor(doc)
	}
	p.cache = rebuilt
	return rebuilt
}

// Restore replaces the cache with persisted state, used on project load.
func (p *Projector) Restore(cache map[string][]*models.Fragment) {
	if cache == nil {
		cache = make(map[string][]*models.Fragment)
	}
	p.cache = cache
	p.active = ""
	p.view = nil
}

// Cache returns the durable highlight cache.
func (p *Projector) Cache() map[string][]*models.Fragment { return p.cache }
