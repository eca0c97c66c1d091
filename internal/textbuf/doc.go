// Package textbuf provides a thread-safe versioned text buffer built on the
// immutable rope. It is the single-document collaborator that higher layers
// aggregate: it owns the text, the version counter, a bounded change
// history, and change notification.
//
// Every committed edit advances the version by one and is recorded in a
// ring of recent changes. That history is what makes anchors work: an
// Anchor is a plain value {version, offset, bias}, and resolving it replays
// the changes committed since its version, shifting the offset through each
// one. Anchors therefore need no central registry — they expire naturally
// once the history no longer reaches back to their version, reported as
// ErrAnchorExpired.
//
// Basic usage:
//
//	buf := textbuf.NewBufferFromString("hello world")
//
//	a, _ := buf.AnchorAt(6, textbuf.BiasRight)
//	buf.Insert(0, ">> ")
//
//	pos, _ := buf.ResolveAnchor(a) // 9
//
// Subscribers registered with Subscribe receive every committed change in
// version order, after the edit has committed and outside the buffer's
// locks, so a handler may read the buffer or apply further edits.
//
// Snapshots share the underlying rope, so taking one is O(1) and the view
// stays consistent regardless of later edits.
package textbuf
