package textbuf

import "github.com/dshills/weave/internal/rope"

// Snapshot provides a read-only view of a buffer at a specific point in
// time. It is safe for concurrent access and will not change even if the
// original buffer is modified.
type Snapshot struct {
	rope       rope.Rope
	version    Version
	lineEnding LineEnding
}

// Text returns the full snapshot content as a string.
func (s *Snapshot) Text() string {
	return s.rope.String()
}

// TextRange returns text in the given byte range, clamped to the snapshot.
func (s *Snapshot) TextRange(start, end ByteOffset) string {
	return s.rope.Slice(start, end)
}

// Len returns the total byte length of the snapshot.
func (s *Snapshot) Len() ByteOffset {
	return s.rope.Len()
}

// IsEmpty returns true if the snapshot is empty.
func (s *Snapshot) IsEmpty() bool {
	return s.rope.IsEmpty()
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() uint32 {
	return s.rope.LineCount()
}

// LineText returns the text of a specific line (without newline).
func (s *Snapshot) LineText(line uint32) string {
	return s.rope.LineText(line)
}

// LineStartOffset returns the byte offset of the start of a line.
func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return s.rope.LineStartOffset(line)
}

// LineEndOffset returns the byte offset of the end of a line (before newline).
func (s *Snapshot) LineEndOffset(line uint32) ByteOffset {
	return s.rope.LineEndOffset(line)
}

// OffsetToPoint converts a byte offset to line/column.
func (s *Snapshot) OffsetToPoint(offset ByteOffset) Point {
	return s.rope.OffsetToPoint(offset)
}

// PointToOffset converts line/column to a byte offset.
func (s *Snapshot) PointToOffset(p Point) ByteOffset {
	return s.rope.PointToOffset(p)
}

// Version returns the version this snapshot was taken at.
func (s *Snapshot) Version() Version {
	return s.version
}

// LineEnding returns the snapshot's line ending style.
func (s *Snapshot) LineEnding() LineEnding {
	return s.lineEnding
}

// Rope returns the underlying immutable rope, for callers that keep the
// text around (diff bases, background computations).
func (s *Snapshot) Rope() rope.Rope {
	return s.rope
}
