package multibuffer

import "errors"

// Errors returned by multibuffer operations. All are recoverable: they
// describe a bad request or a reference to state that has moved on, never
// a corrupted MultiBuffer.
var (
	// ErrInvalidRange reports malformed bounds: a logical range outside
	// the document, an excerpt whose start exceeds its end, or an
	// excerpt referencing a buffer the source does not know.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNotFound reports an excerpt id that is not present. Removal of
	// an unknown id fails with this rather than silently succeeding, so
	// double-removal bugs surface.
	ErrNotFound = errors.New("excerpt not found")

	// ErrStaleExcerpt reports an operation against an excerpt that has
	// been removed from the arrangement.
	ErrStaleExcerpt = errors.New("stale excerpt")

	// ErrReadOnlyExcerpt reports an edit that targets an immutable
	// excerpt. No part of the edit is applied.
	ErrReadOnlyExcerpt = errors.New("excerpt is read-only")

	// ErrUnresolved reports an anchor whose excerpt no longer exists in
	// the snapshot it is being resolved against.
	ErrUnresolved = errors.New("anchor cannot be resolved")
)
