package multibuffer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/weave/internal/textbuf"
)

// BufferID identifies an underlying buffer. The MultiBuffer never mints
// these itself; they come from whatever source owns the buffers.
type BufferID = uuid.UUID

// ExcerptID identifies an excerpt for its whole lifetime. IDs are
// allocated from a per-MultiBuffer counter and never reused, so a held id
// either still names the same excerpt or fails with a stale error; it can
// never silently name a different one.
type ExcerptID uint64

// String renders the id for logs and errors.
func (id ExcerptID) String() string {
	return fmt.Sprintf("excerpt(%d)", uint64(id))
}

// excerpt is the index's record of one contiguous slice of an underlying
// buffer. The boundaries are buffer-local anchors so that edits elsewhere
// in the buffer move the excerpt instead of corrupting it; start/end hold
// the anchors' resolved offsets as of version, and are refreshed whenever
// a change from the buffer is folded in.
//
// Records are stored in shared persistent tree nodes and must be treated
// as immutable: refreshing an excerpt replaces the record, never mutates
// it.
type excerpt struct {
	id       ExcerptID
	bufferID BufferID
	loc      locator

	startAnchor textbuf.Anchor
	endAnchor   textbuf.Anchor
	start       textbuf.ByteOffset // resolved startAnchor at version
	end         textbuf.ByteOffset // resolved endAnchor at version
	lines       uint32             // newline count in [start, end) at version
	version     textbuf.Version

	headerHeight uint32
	readOnly     bool
}

// len returns the excerpt's extent in bytes. Header height never
// contributes to offset arithmetic.
func (e *excerpt) len() textbuf.ByteOffset {
	return e.end - e.start
}

func (e *excerpt) summary() exSummary {
	return exSummary{bytes: e.len(), lines: e.lines, count: 1}
}

// bufferRange returns the excerpt's current buffer-local byte range.
func (e *excerpt) bufferRange() textbuf.Range {
	return textbuf.Range{Start: e.start, End: e.end}
}

// ExcerptSpec describes an excerpt to insert: which buffer, which byte
// range of it, and presentation attributes. HeaderHeight is carried for
// renderers and excluded from all offset math. ReadOnly marks the excerpt
// itself immutable regardless of the buffer's own flag.
type ExcerptSpec struct {
	BufferID     BufferID
	Range        textbuf.Range
	HeaderHeight uint32
	ReadOnly     bool
}

// ExcerptInfo is the queryable view of one excerpt within a snapshot.
// BufferRange holds buffer-local byte offsets as of BufferVersion;
// LogicalRange holds the excerpt's span in the snapshot's logical
// coordinates.
type ExcerptInfo struct {
	ID            ExcerptID
	BufferID      BufferID
	BufferRange   textbuf.Range
	LogicalRange  Range
	BufferVersion textbuf.Version
	HeaderHeight  uint32
	ReadOnly      bool
}

// Len returns the excerpt's extent in bytes.
func (info ExcerptInfo) Len() textbuf.ByteOffset {
	return info.BufferRange.Len()
}
