// Package apperr defines the sentinel errors shared across the core.
package apperr

import "errors"

var (
	// ErrNotFound signals a missing document, code, or file.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName signals a code name collision.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrCycleDetected signals a reparent that would make the code forest cyclic.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrUnsupportedFormat signals an import of an unrecognised file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrReadError signals an import whose text extraction failed or was empty.
	ErrReadError = errors.New("read error")
	// ErrInvalidRange signals fragment offsets with start >= end or out of bounds.
	ErrInvalidRange = errors.New("invalid range")
	// ErrOffsetDrift signals a fragment whose text can no longer be located.
	// Soft: the fragment is skipped for highlighting, never dropped from state.
	ErrOffsetDrift = errors.New("offset drift")
	// ErrCorruptState signals a persisted state file that exists but cannot be
	// parsed. Distinct from "no project data yet", which loads empty defaults.
	ErrCorruptState = errors.New("corrupt state")
	// ErrNoProject signals an operation that requires an open project.
	ErrNoProject = errors.New("no project open")
)
