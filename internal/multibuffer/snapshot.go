package multibuffer

import (
	"strings"

	"github.com/dshills/weave/internal/textbuf"
	"github.com/dshills/weave/internal/textdiff"
)

// bufferState is a snapshot's view of one underlying buffer: its text at
// the version the arrangement last folded, plus the diff overlay state
// for that buffer. The live handle is carried only for anchor replay;
// every text read goes through the captured snapshot.
type bufferState struct {
	buf     *textbuf.Buffer
	snap    *textbuf.Snapshot
	hunks   []textdiff.Hunk
	hasBase bool
	pending bool
}

// Snapshot is an immutable view of the whole multibuffer: the excerpt
// arrangement, the text each excerpt covered when the snapshot was
// published, and the diff overlay. Snapshots share tree structure with
// each other, so taking one is cheap and holding one costs only what has
// since changed. All query methods are safe for concurrent use.
type Snapshot struct {
	version uint64
	index   excerptIndex
	buffers map[BufferID]*bufferState
}

// Version returns the snapshot's position in the event sequence: the
// version of the last event that was published when this snapshot was
// taken.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the total logical length in bytes.
func (s *Snapshot) Len() ByteOffset { return s.index.bytes() }

// IsEmpty reports whether the logical document has no content. An
// arrangement of only zero-length excerpts is empty.
func (s *Snapshot) IsEmpty() bool { return s.index.bytes() == 0 }

// ExcerptCount returns the number of excerpts in the arrangement.
func (s *Snapshot) ExcerptCount() int { return s.index.count() }

// LineCount returns the number of logical lines. An empty document has
// one line. Excerpts concatenate without injected separators, so a line
// can span the seam between an excerpt that does not end in a newline and
// the one after it.
func (s *Snapshot) LineCount() uint32 { return s.index.newlines() + 1 }

func (s *Snapshot) state(e *excerpt) *bufferState {
	return s.buffers[e.bufferID]
}

func (s *Snapshot) infoFor(e *excerpt, before exSummary) ExcerptInfo {
	return ExcerptInfo{
		ID:            e.id,
		BufferID:      e.bufferID,
		BufferRange:   e.bufferRange(),
		LogicalRange:  Range{Start: before.bytes, End: before.bytes + e.len()},
		BufferVersion: e.version,
		HeaderHeight:  e.headerHeight,
		ReadOnly:      e.readOnly,
	}
}

// Text returns the full logical content.
func (s *Snapshot) Text() string {
	var sb strings.Builder
	sb.Grow(int(s.Len()))
	s.index.root.each(func(e *excerpt, _ exSummary) bool {
		sb.WriteString(s.state(e).snap.TextRange(e.start, e.end))
		return true
	})
	return sb.String()
}

// TextRange returns the logical content in [start, end), clamped to the
// document.
func (s *Snapshot) TextRange(start, end ByteOffset) string {
	start = clampOffset(start, s.Len())
	end = clampOffset(end, s.Len())
	if start >= end {
		return ""
	}

	var sb strings.Builder
	sb.Grow(int(end - start))
	s.index.eachInRange(start, end, func(e *excerpt, before exSummary) bool {
		lo := e.start
		if start > before.bytes {
			lo = e.start + (start - before.bytes)
		}
		hi := e.start + e.len()
		if end < before.bytes+e.len() {
			hi = e.start + (end - before.bytes)
		}
		sb.WriteString(s.state(e).snap.TextRange(lo, hi))
		return true
	})
	return sb.String()
}

// ResolveOffset maps a logical offset to the excerpt containing it and
// the offset within that excerpt. An offset on the boundary between two
// excerpts belongs to the following one; the document's total length
// resolves to the end of the last excerpt. Returns ErrInvalidRange for an
// offset outside the document and ErrNotFound for an empty arrangement.
func (s *Snapshot) ResolveOffset(off ByteOffset) (ExcerptID, ByteOffset, error) {
	if off < 0 || off > s.Len() {
		return 0, 0, ErrInvalidRange
	}
	e, local, _, ok := s.index.resolveOffset(off)
	if !ok {
		return 0, 0, ErrNotFound
	}
	return e.id, local, nil
}

// ToLogical maps an excerpt-local offset back to the logical document.
// Returns ErrStaleExcerpt if the excerpt is not in this snapshot and
// ErrInvalidRange if local lies outside the excerpt.
func (s *Snapshot) ToLogical(id ExcerptID, local ByteOffset) (ByteOffset, error) {
	start, e, ok := s.index.logicalStart(id)
	if !ok {
		return 0, ErrStaleExcerpt
	}
	if local < 0 || local > e.len() {
		return 0, ErrInvalidRange
	}
	return start + local, nil
}

// Excerpt returns the queryable view of one excerpt.
func (s *Snapshot) Excerpt(id ExcerptID) (ExcerptInfo, error) {
	e, before, ok := s.index.lookup(id)
	if !ok {
		return ExcerptInfo{}, ErrStaleExcerpt
	}
	return s.infoFor(e, before), nil
}

// Excerpts returns every excerpt in display order.
func (s *Snapshot) Excerpts() []ExcerptInfo {
	out := make([]ExcerptInfo, 0, s.index.count())
	s.index.root.each(func(e *excerpt, before exSummary) bool {
		out = append(out, s.infoFor(e, before))
		return true
	})
	return out
}

// ExcerptsInRange returns the excerpts whose logical span intersects
// [start, end), in display order. A zero-length excerpt is included when
// its position falls inside the range.
func (s *Snapshot) ExcerptsInRange(r Range) []ExcerptInfo {
	var out []ExcerptInfo
	s.index.eachInRange(r.Start, r.End, func(e *excerpt, before exSummary) bool {
		out = append(out, s.infoFor(e, before))
		return true
	})
	return out
}

// lineStart returns the logical offset where the given logical line
// begins, clamped to the document end for lines past the last.
func (s *Snapshot) lineStart(line uint32) ByteOffset {
	if line == 0 {
		return 0
	}
	if line > s.index.newlines() {
		return s.Len()
	}
	e, before := s.index.root.seekLine(line)
	if e == nil {
		return s.Len()
	}
	k := line - before.lines
	snap := s.state(e).snap
	startLine := snap.OffsetToPoint(e.start).Line
	bufLineStart := snap.LineStartOffset(startLine + k)
	return before.bytes + (bufLineStart - e.start)
}

// LineStartOffset returns the logical offset of the start of a line.
func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return s.lineStart(line)
}

// LineEndOffset returns the logical offset of the end of a line, before
// its newline.
func (s *Snapshot) LineEndOffset(line uint32) ByteOffset {
	nl := s.index.newlines()
	if line >= nl {
		return s.Len()
	}
	return s.lineStart(line+1) - 1
}

// LineText returns the text of a logical line, without its newline.
func (s *Snapshot) LineText(line uint32) string {
	return s.TextRange(s.LineStartOffset(line), s.LineEndOffset(line))
}

// OffsetToPoint converts a logical offset to a logical line/column,
// clamping the offset to the document.
func (s *Snapshot) OffsetToPoint(off ByteOffset) Point {
	off = clampOffset(off, s.Len())
	e, local, before, ok := s.index.resolveOffset(off)
	if !ok {
		return Point{}
	}
	snap := s.state(e).snap
	baseLine := snap.OffsetToPoint(e.start).Line
	line := before.lines + (snap.OffsetToPoint(e.start+local).Line - baseLine)
	col := off - s.lineStart(line)
	return Point{Line: line, Column: uint32(col)}
}

// PointToOffset converts a logical line/column to a logical offset. The
// column is clamped to the line's end, and lines past the last clamp to
// the document end.
func (s *Snapshot) PointToOffset(p Point) ByteOffset {
	nl := s.index.newlines()
	if p.Line > nl {
		return s.Len()
	}
	start := s.lineStart(p.Line)
	end := s.Len()
	if p.Line < nl {
		end = s.lineStart(p.Line+1) - 1
	}
	off := start + ByteOffset(p.Column)
	if off > end {
		off = end
	}
	return off
}

func clampOffset(off, limit textbuf.ByteOffset) textbuf.ByteOffset {
	if off < 0 {
		return 0
	}
	if off > limit {
		return limit
	}
	return off
}
