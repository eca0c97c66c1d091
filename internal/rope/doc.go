// Package rope provides an immutable tree-backed text store with
// summary-indexed offset and line lookups.
//
// The tree keeps per-subtree metrics (byte count, newline count, first and
// last line lengths) so that offset/point conversion, slicing, and line
// queries run in O(log n) without scanning text. Every operation returns a
// new Rope sharing structure with the old one, which makes snapshots O(1)
// and safe to read from any goroutine.
package rope
