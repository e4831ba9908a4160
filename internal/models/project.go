// Package models defines the domain types for Raiz.
package models

import "time"

// RootGroup is the document group for documents outside any folder.
const RootGroup = "__root__"

// Fragment is a coded span of a document's text. Text is a verbatim snapshot
// taken at annotation time; Start/End are rune-agnostic byte offsets into the
// stored plain text and may drift, in which case they are repaired by a
// content search (see codes.ResolveOffsets). Seq is the project-wide creation
// sequence number, stamped by the registry: fragments of one document render
// in Seq order regardless of which code owns them, so a later annotation
// paints over an earlier overlapping one.
type Fragment struct {
	Text     string `json:"text"`
	Document string `json:"document"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Color    string `json:"color,omitempty"`
	Seq      int    `json:"seq,omitempty"`
}

// Code is one label in the hierarchical code forest. Parent is the name of
// another code, or empty for a root. Fragments are held in creation order
// and are exclusively owned by the code; the highlight cache only references
// them, which is why they are pointers.
type Code struct {
	Name      string      `json:"name"`
	Parent    string      `json:"parent,omitempty"`
	Color     string      `json:"color"`
	Count     int         `json:"count"`
	Fragments []*Fragment `json:"fragments"`

	// Memo is accepted on load for state files written by older versions.
	// The memo store (memos.json) is the canonical source; this field is
	// never written back.
	Memo string `json:"memo,omitempty"`
}

// ProjectState is the consolidated persisted aggregate, one JSON document
// per project directory.
type ProjectState struct {
	Codes      []*Code                `json:"codes"`
	Documents  []string               `json:"documents"`
	Highlights map[string][]*Fragment `json:"highlights"`
	DocGroups  map[string][]string    `json:"doc_groups,omitempty"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CodeBookRow is one row of the flattened depth-first code book traversal,
// consumed by the export writers.
type CodeBookRow struct {
	Depth int    `json:"depth"`
	Name  string `json:"name"`
	Memo  string `json:"memo"`
	Count int    `json:"count"`
}
