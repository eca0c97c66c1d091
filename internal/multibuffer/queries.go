package multibuffer

import "github.com/dshills/weave/internal/textbuf"

// Convenience queries against the latest published snapshot. Each call
// reads one snapshot; callers needing several reads that agree with each
// other should take Snapshot once and query that.

// Text returns the full logical content.
func (m *MultiBuffer) Text() string { return m.Snapshot().Text() }

// TextRange returns the logical content in [start, end).
func (m *MultiBuffer) TextRange(start, end ByteOffset) string {
	return m.Snapshot().TextRange(start, end)
}

// Len returns the total logical length in bytes.
func (m *MultiBuffer) Len() ByteOffset { return m.Snapshot().Len() }

// IsEmpty reports whether the logical document has no content.
func (m *MultiBuffer) IsEmpty() bool { return m.Snapshot().IsEmpty() }

// LineCount returns the number of logical lines.
func (m *MultiBuffer) LineCount() uint32 { return m.Snapshot().LineCount() }

// ExcerptCount returns the number of excerpts.
func (m *MultiBuffer) ExcerptCount() int { return m.Snapshot().ExcerptCount() }

// Version returns the version of the latest published snapshot.
func (m *MultiBuffer) Version() uint64 { return m.Snapshot().Version() }

// ResolveOffset maps a logical offset to (excerpt, local offset).
func (m *MultiBuffer) ResolveOffset(off ByteOffset) (ExcerptID, ByteOffset, error) {
	return m.Snapshot().ResolveOffset(off)
}

// ToLogical maps an excerpt-local offset to a logical offset.
func (m *MultiBuffer) ToLogical(id ExcerptID, local ByteOffset) (ByteOffset, error) {
	return m.Snapshot().ToLogical(id, local)
}

// Excerpt returns the view of one excerpt.
func (m *MultiBuffer) Excerpt(id ExcerptID) (ExcerptInfo, error) {
	return m.Snapshot().Excerpt(id)
}

// Excerpts returns every excerpt in display order.
func (m *MultiBuffer) Excerpts() []ExcerptInfo { return m.Snapshot().Excerpts() }

// ExcerptsInRange returns the excerpts intersecting a logical range.
func (m *MultiBuffer) ExcerptsInRange(r Range) []ExcerptInfo {
	return m.Snapshot().ExcerptsInRange(r)
}

// OffsetToPoint converts a logical offset to a logical line/column.
func (m *MultiBuffer) OffsetToPoint(off ByteOffset) Point {
	return m.Snapshot().OffsetToPoint(off)
}

// PointToOffset converts a logical line/column to a logical offset.
func (m *MultiBuffer) PointToOffset(p Point) ByteOffset {
	return m.Snapshot().PointToOffset(p)
}

// AnchorAt creates an anchor at a logical offset.
func (m *MultiBuffer) AnchorAt(off ByteOffset, bias textbuf.Bias) (Anchor, error) {
	return m.Snapshot().AnchorAt(off, bias)
}

// ResolveAnchor returns the anchor's current logical offset.
func (m *MultiBuffer) ResolveAnchor(a Anchor) (ByteOffset, error) {
	return m.Snapshot().ResolveAnchor(a)
}

// CompareAnchors orders two anchors by current logical position.
func (m *MultiBuffer) CompareAnchors(a, b Anchor) (int, error) {
	return m.Snapshot().CompareAnchors(a, b)
}

// DiffHunks returns an excerpt's current diff hunks.
func (m *MultiBuffer) DiffHunks(id ExcerptID) ([]DiffHunk, error) {
	return m.Snapshot().DiffHunks(id)
}

// DiffHunksInRange returns the diff hunks intersecting a logical range.
func (m *MultiBuffer) DiffHunksInRange(r Range) []DiffHunk {
	return m.Snapshot().DiffHunksInRange(r)
}

// DiffPending reports whether an excerpt's overlay recompute is still in
// flight.
func (m *MultiBuffer) DiffPending(id ExcerptID) (bool, error) {
	return m.Snapshot().DiffPending(id)
}
