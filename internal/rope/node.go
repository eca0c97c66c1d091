package rope

import "strings"

// Tree shape constants.
const (
	// maxChildren is the fan-out of internal nodes.
	maxChildren = 8

	// maxLeafChunks is the number of chunks a leaf may hold.
	maxLeafChunks = 4

	// maxChunkBytes is the largest chunk produced when building.
	maxChunkBytes = 256
)

// chunk is an immutable piece of text with its precomputed summary.
type chunk struct {
	text string
	sum  Summary
}

func newChunk(s string) chunk {
	return chunk{text: s, sum: Compute(s)}
}

// node is a node in the rope tree. Leaves (height 0) carry chunks;
// internal nodes carry children. Nodes are never mutated after they are
// linked into a rope, so ropes built from shared nodes stay independent.
type node struct {
	height   uint8
	sum      Summary
	children []*node
	chunks   []chunk
}

func newLeaf(chunks []chunk) *node {
	n := &node{chunks: chunks}
	for _, c := range chunks {
		n.sum = n.sum.Add(c.sum)
	}
	return n
}

func newInternal(children []*node) *node {
	if len(children) == 0 {
		return newLeaf(nil)
	}
	n := &node{
		height:   children[0].height + 1,
		children: children,
	}
	for _, c := range children {
		n.sum = n.sum.Add(c.sum)
	}
	return n
}

func (n *node) isLeaf() bool { return n.height == 0 }

// split returns nodes covering [0, offset) and [offset, end).
func (n *node) split(offset ByteOffset) (*node, *node) {
	if offset <= 0 {
		return newLeaf(nil), n
	}
	if offset >= n.sum.Bytes {
		return n, newLeaf(nil)
	}

	if n.isLeaf() {
		var left, right []chunk
		at := ByteOffset(0)
		for _, c := range n.chunks {
			end := at + c.sum.Bytes
			switch {
			case end <= offset:
				left = append(left, c)
			case at >= offset:
				right = append(right, c)
			default:
				cut := int(offset - at)
				if cut > 0 {
					left = append(left, newChunk(c.text[:cut]))
				}
				if cut < len(c.text) {
					right = append(right, newChunk(c.text[cut:]))
				}
			}
			at = end
		}
		return newLeaf(left), newLeaf(right)
	}

	var left, right []*node
	at := ByteOffset(0)
	for _, c := range n.children {
		end := at + c.sum.Bytes
		switch {
		case end <= offset:
			left = append(left, c)
		case at >= offset:
			right = append(right, c)
		default:
			l, r := c.split(offset - at)
			if l.sum.Bytes > 0 {
				left = append(left, l)
			}
			if r.sum.Bytes > 0 {
				right = append(right, r)
			}
		}
		at = end
	}
	return fromNodes(left), fromNodes(right)
}

// concat joins two subtrees into one balanced tree.
func concat(left, right *node) *node {
	if left == nil || left.sum.Bytes == 0 {
		if right == nil {
			return newLeaf(nil)
		}
		return right
	}
	if right == nil || right.sum.Bytes == 0 {
		return left
	}

	if left.isLeaf() && right.isLeaf() {
		if len(left.chunks)+len(right.chunks) <= maxLeafChunks {
			merged := make([]chunk, 0, len(left.chunks)+len(right.chunks))
			merged = append(merged, left.chunks...)
			merged = append(merged, right.chunks...)
			return newLeaf(merged)
		}
		return newInternal([]*node{left, right})
	}

	for left.height < right.height {
		left = newInternal([]*node{left})
	}
	for right.height < left.height {
		right = newInternal([]*node{right})
	}

	all := make([]*node, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	return fromNodes(all)
}

// fromNodes builds a balanced tree over same-height nodes.
func fromNodes(nodes []*node) *node {
	switch len(nodes) {
	case 0:
		return newLeaf(nil)
	case 1:
		return nodes[0]
	}
	if len(nodes) <= maxChildren {
		return newInternal(nodes)
	}

	var parents []*node
	for i := 0; i < len(nodes); i += maxChildren {
		end := min(i+maxChildren, len(nodes))
		parents = append(parents, newInternal(nodes[i:end]))
	}
	return fromNodes(parents)
}

// appendAll writes the subtree's full text to the builder.
func (n *node) appendAll(sb *strings.Builder) {
	if n.isLeaf() {
		for _, c := range n.chunks {
			sb.WriteString(c.text)
		}
		return
	}
	for _, c := range n.children {
		c.appendAll(sb)
	}
}

// appendRange writes text in [start, end) to the builder.
func (n *node) appendRange(sb *strings.Builder, start, end ByteOffset) {
	if start >= end {
		return
	}

	if n.isLeaf() {
		at := ByteOffset(0)
		for _, c := range n.chunks {
			clen := c.sum.Bytes
			cend := at + clen
			if cend <= start {
				at = cend
				continue
			}
			if at >= end {
				break
			}
			lo := 0
			if start > at {
				lo = int(start - at)
			}
			hi := int(clen)
			if end < cend {
				hi = int(end - at)
			}
			sb.WriteString(c.text[lo:hi])
			at = cend
		}
		return
	}

	at := ByteOffset(0)
	for _, c := range n.children {
		cend := at + c.sum.Bytes
		if cend <= start {
			at = cend
			continue
		}
		if at >= end {
			break
		}
		lo := ByteOffset(0)
		if start > at {
			lo = start - at
		}
		hi := c.sum.Bytes
		if end < cend {
			hi = end - at
		}
		c.appendRange(sb, lo, hi)
		at = cend
	}
}

// offsetToPoint converts a byte offset inside this subtree to a point.
func (n *node) offsetToPoint(offset ByteOffset) Point {
	var p Point
	for !n.isLeaf() {
		for i, c := range n.children {
			if offset < c.sum.Bytes || i == len(n.children)-1 {
				n = c
				break
			}
			offset -= c.sum.Bytes
			if c.sum.Lines > 0 {
				p.Line += c.sum.Lines
				p.Column = c.sum.LastLine
			} else {
				p.Column += c.sum.LastLine
			}
		}
	}

	for i, c := range n.chunks {
		if offset < c.sum.Bytes || i == len(n.chunks)-1 {
			for j := 0; j < len(c.text) && ByteOffset(j) < offset; j++ {
				if c.text[j] == '\n' {
					p.Line++
					p.Column = 0
				} else {
					p.Column++
				}
			}
			return p
		}
		offset -= c.sum.Bytes
		if c.sum.Lines > 0 {
			p.Line += c.sum.Lines
			p.Column = c.sum.LastLine
		} else {
			p.Column += c.sum.LastLine
		}
	}
	return p
}

// lineStart returns the byte offset where the given line begins.
// Line 0 starts at offset 0; line k starts just after the kth newline.
func (n *node) lineStart(line uint32) ByteOffset {
	if line == 0 {
		return 0
	}

	var offset ByteOffset
	for !n.isLeaf() {
		for i, c := range n.children {
			if c.sum.Lines >= line || i == len(n.children)-1 {
				n = c
				break
			}
			line -= c.sum.Lines
			offset += c.sum.Bytes
		}
	}

	for i, c := range n.chunks {
		if c.sum.Lines >= line || i == len(n.chunks)-1 {
			idx := nthNewline(c.text, line)
			if idx < 0 {
				return offset + c.sum.Bytes
			}
			return offset + ByteOffset(idx) + 1
		}
		line -= c.sum.Lines
		offset += c.sum.Bytes
	}
	return offset
}
