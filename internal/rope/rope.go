package rope

import "strings"

// Rope is an immutable text store. Operations return new Rope values and
// never modify the receiver, so a Rope can be shared across goroutines and
// held as a cheap snapshot while the source keeps editing.
type Rope struct {
	root *node
}

// New returns an empty rope.
func New() Rope {
	return Rope{root: newLeaf(nil)}
}

// FromString builds a rope from s.
func FromString(s string) Rope {
	if len(s) == 0 {
		return New()
	}

	var chunks []chunk
	for len(s) > 0 {
		end := min(maxChunkBytes, len(s))
		chunks = append(chunks, newChunk(s[:end]))
		s = s[end:]
	}

	var leaves []*node
	for i := 0; i < len(chunks); i += maxLeafChunks {
		end := min(i+maxLeafChunks, len(chunks))
		leaves = append(leaves, newLeaf(chunks[i:end]))
	}
	return Rope{root: fromNodes(leaves)}
}

// Len returns the total byte length.
func (r Rope) Len() ByteOffset {
	if r.root == nil {
		return 0
	}
	return r.root.sum.Bytes
}

// IsEmpty reports whether the rope holds no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// Summary returns the aggregate metrics for the whole rope.
func (r Rope) Summary() Summary {
	if r.root == nil {
		return Summary{}
	}
	return r.root.sum
}

// LineCount returns the number of lines. An empty rope has one line.
func (r Rope) LineCount() uint32 {
	return r.Summary().Lines + 1
}

// String returns the full text.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(r.root.sum.Bytes))
	r.root.appendAll(&sb)
	return sb.String()
}

// Slice returns the text in [start, end), clamped to the rope bounds.
func (r Rope) Slice(start, end ByteOffset) string {
	if r.root == nil {
		return ""
	}
	start = max(start, 0)
	end = min(end, r.root.sum.Bytes)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// Insert returns a rope with s inserted at offset. The offset is clamped
// to [0, Len].
func (r Rope) Insert(offset ByteOffset, s string) Rope {
	if len(s) == 0 {
		return r
	}
	if r.root == nil {
		return FromString(s)
	}
	offset = clamp(offset, 0, r.root.sum.Bytes)
	left, right := r.root.split(offset)
	return Rope{root: concat(concat(left, FromString(s).root), right)}
}

// Delete returns a rope with [start, end) removed.
func (r Rope) Delete(start, end ByteOffset) Rope {
	if r.root == nil {
		return New()
	}
	start = clamp(start, 0, r.root.sum.Bytes)
	end = clamp(end, start, r.root.sum.Bytes)
	if start == end {
		return r
	}
	left, _ := r.root.split(start)
	_, right := r.root.split(end)
	return Rope{root: concat(left, right)}
}

// Replace returns a rope with [start, end) replaced by s.
func (r Rope) Replace(start, end ByteOffset, s string) Rope {
	out := r.Delete(start, end)
	return out.Insert(start, s)
}

// OffsetToPoint converts a byte offset to a line/column point. Offsets
// outside the rope are clamped.
func (r Rope) OffsetToPoint(offset ByteOffset) Point {
	if r.root == nil {
		return Point{}
	}
	offset = clamp(offset, 0, r.root.sum.Bytes)
	return r.root.offsetToPoint(offset)
}

// PointToOffset converts a line/column point to a byte offset. The column
// is clamped to the line's length (excluding its newline).
func (r Rope) PointToOffset(p Point) ByteOffset {
	if r.root == nil {
		return 0
	}
	start := r.root.lineStart(p.Line)
	end := r.LineEndOffset(p.Line)
	return min(start+ByteOffset(p.Column), end)
}

// LineStartOffset returns the byte offset at which the given line begins.
func (r Rope) LineStartOffset(line uint32) ByteOffset {
	if r.root == nil {
		return 0
	}
	return r.root.lineStart(line)
}

// LineEndOffset returns the byte offset of the line's end, before its
// newline. For the final line this is Len.
func (r Rope) LineEndOffset(line uint32) ByteOffset {
	if r.root == nil {
		return 0
	}
	if line >= r.root.sum.Lines {
		return r.root.sum.Bytes
	}
	return r.root.lineStart(line+1) - 1
}

// LineText returns the text of one line without its trailing newline.
func (r Rope) LineText(line uint32) string {
	return r.Slice(r.LineStartOffset(line), r.LineEndOffset(line))
}

// SplitLines returns every line of the rope, without trailing newlines.
// A rope holding "a\nb" yields ["a", "b"]; an empty rope yields [""].
func (r Rope) SplitLines() []string {
	return strings.Split(r.String(), "\n")
}

func clamp(v, lo, hi ByteOffset) ByteOffset {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
