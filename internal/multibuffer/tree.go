package multibuffer

import (
	"slices"

	"github.com/dshills/weave/internal/textbuf"
)

// maxExChildren is the fan-out of internal tree nodes and the capacity of
// leaves.
const maxExChildren = 8

// exSummary aggregates what seeks through the excerpt tree need: total
// bytes, newline count, and excerpt count. It forms a monoid under add.
// count is the discriminator for emptiness, not bytes: a zero-length
// excerpt still occupies a position in the arrangement.
type exSummary struct {
	bytes textbuf.ByteOffset
	lines uint32
	count int
}

func (s exSummary) add(o exSummary) exSummary {
	return exSummary{
		bytes: s.bytes + o.bytes,
		lines: s.lines + o.lines,
		count: s.count + o.count,
	}
}

// exNode is a node of the persistent excerpt tree. Leaves (height 0)
// carry excerpt records ordered by locator; internal nodes carry
// children. Nodes are never mutated once linked into a tree, so snapshots
// share structure with every later tree for free.
type exNode struct {
	height   uint8
	sum      exSummary
	maxLoc   locator
	children []*exNode
	items    []*excerpt
}

func newExLeaf(items []*excerpt) *exNode {
	n := &exNode{items: items}
	for _, it := range items {
		n.sum = n.sum.add(it.summary())
	}
	if len(items) > 0 {
		n.maxLoc = items[len(items)-1].loc
	}
	return n
}

func newExInternal(children []*exNode) *exNode {
	if len(children) == 0 {
		return newExLeaf(nil)
	}
	n := &exNode{
		height:   children[0].height + 1,
		children: children,
	}
	for _, c := range children {
		n.sum = n.sum.add(c.sum)
	}
	n.maxLoc = children[len(children)-1].maxLoc
	return n
}

func (n *exNode) isLeaf() bool { return n.height == 0 }

// exSplit returns trees covering items [0, ord) and [ord, count).
func exSplit(n *exNode, ord int) (*exNode, *exNode) {
	if ord <= 0 {
		return newExLeaf(nil), n
	}
	if ord >= n.sum.count {
		return n, newExLeaf(nil)
	}

	if n.isLeaf() {
		left := slices.Clone(n.items[:ord])
		right := slices.Clone(n.items[ord:])
		return newExLeaf(left), newExLeaf(right)
	}

	var left, right []*exNode
	at := 0
	for _, c := range n.children {
		end := at + c.sum.count
		switch {
		case end <= ord:
			left = append(left, c)
		case at >= ord:
			right = append(right, c)
		default:
			l, r := exSplit(c, ord-at)
			if l.sum.count > 0 {
				left = append(left, l)
			}
			if r.sum.count > 0 {
				right = append(right, r)
			}
		}
		at = end
	}
	return exFromNodes(left), exFromNodes(right)
}

// exConcat joins two subtrees into one balanced tree.
func exConcat(left, right *exNode) *exNode {
	if left == nil || left.sum.count == 0 {
		if right == nil {
			return newExLeaf(nil)
		}
		return right
	}
	if right == nil || right.sum.count == 0 {
		return left
	}

	if left.isLeaf() && right.isLeaf() {
		if len(left.items)+len(right.items) <= maxExChildren {
			merged := make([]*excerpt, 0, len(left.items)+len(right.items))
			merged = append(merged, left.items...)
			merged = append(merged, right.items...)
			return newExLeaf(merged)
		}
		return newExInternal([]*exNode{left, right})
	}

	for left.height < right.height {
		left = newExInternal([]*exNode{left})
	}
	for right.height < left.height {
		right = newExInternal([]*exNode{right})
	}

	all := make([]*exNode, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	return exFromNodes(all)
}

// exFromNodes builds a balanced tree over same-height nodes.
func exFromNodes(nodes []*exNode) *exNode {
	switch len(nodes) {
	case 0:
		return newExLeaf(nil)
	case 1:
		return nodes[0]
	}
	if len(nodes) <= maxExChildren {
		return newExInternal(nodes)
	}

	var parents []*exNode
	for i := 0; i < len(nodes); i += maxExChildren {
		end := min(i+maxExChildren, len(nodes))
		parents = append(parents, newExInternal(nodes[i:end]))
	}
	return exFromNodes(parents)
}

// exInsertAt inserts e so that it becomes item ord of the new tree.
func exInsertAt(root *exNode, ord int, e *excerpt) *exNode {
	l, r := exSplit(root, ord)
	return exConcat(exConcat(l, newExLeaf([]*excerpt{e})), r)
}

// exRemoveAt removes item ord.
func exRemoveAt(root *exNode, ord int) *exNode {
	l, r := exSplit(root, ord)
	_, rest := exSplit(r, 1)
	return exConcat(l, rest)
}

// exReplaceAt swaps item ord for e without disturbing its neighbors.
func exReplaceAt(root *exNode, ord int, e *excerpt) *exNode {
	l, r := exSplit(root, ord)
	_, rest := exSplit(r, 1)
	return exConcat(exConcat(l, newExLeaf([]*excerpt{e})), rest)
}

// each visits every excerpt in display order until fn returns false.
func (n *exNode) each(fn func(*excerpt, exSummary) bool) {
	var before exSummary
	n.eachFrom(&before, fn)
}

func (n *exNode) eachFrom(before *exSummary, fn func(*excerpt, exSummary) bool) bool {
	if n.isLeaf() {
		for _, it := range n.items {
			if !fn(it, *before) {
				return false
			}
			*before = before.add(it.summary())
		}
		return true
	}
	for _, c := range n.children {
		if !c.eachFrom(before, fn) {
			return false
		}
	}
	return true
}

// seekOffset finds the excerpt containing the logical byte offset, with
// the summary of everything before it. A boundary offset lands on the
// following excerpt, so zero-length excerpts are passed over unless they
// end the arrangement; an offset equal to the total length lands at the
// end of the last excerpt. Returns nil only for an empty tree.
func (n *exNode) seekOffset(off textbuf.ByteOffset) (*excerpt, exSummary) {
	var before exSummary
	for !n.isLeaf() {
		for i, c := range n.children {
			if off < c.sum.bytes || i == len(n.children)-1 {
				n = c
				break
			}
			off -= c.sum.bytes
			before = before.add(c.sum)
		}
	}
	for i, it := range n.items {
		if off < it.len() || i == len(n.items)-1 {
			return it, before
		}
		off -= it.len()
		before = before.add(it.summary())
	}
	return nil, before
}

// seekLine finds the excerpt containing the logical line's starting
// newline, line >= 1. Line 0 starts at offset 0 and needs no seek.
func (n *exNode) seekLine(line uint32) (*excerpt, exSummary) {
	var before exSummary
	for !n.isLeaf() {
		for i, c := range n.children {
			if c.sum.lines >= line || i == len(n.children)-1 {
				n = c
				break
			}
			line -= c.sum.lines
			before = before.add(c.sum)
		}
	}
	for i, it := range n.items {
		if it.lines >= line || i == len(n.items)-1 {
			return it, before
		}
		line -= it.lines
		before = before.add(it.summary())
	}
	return nil, before
}

// seekLocator finds the excerpt stored under loc, with the summary of
// everything before it. before.count is the excerpt's display ordinal.
func (n *exNode) seekLocator(loc locator) (*excerpt, exSummary, bool) {
	var before exSummary
	for !n.isLeaf() {
		for i, c := range n.children {
			if loc.compare(c.maxLoc) <= 0 || i == len(n.children)-1 {
				n = c
				break
			}
			before = before.add(c.sum)
		}
	}
	for _, it := range n.items {
		switch it.loc.compare(loc) {
		case 0:
			return it, before, true
		case 1:
			return nil, before, false
		}
		before = before.add(it.summary())
	}
	return nil, before, false
}

// entryAt returns item ord and the summary before it. The caller
// guarantees 0 <= ord < count.
func (n *exNode) entryAt(ord int) (*excerpt, exSummary) {
	var before exSummary
	for !n.isLeaf() {
		for i, c := range n.children {
			if ord < c.sum.count || i == len(n.children)-1 {
				n = c
				break
			}
			ord -= c.sum.count
			before = before.add(c.sum)
		}
	}
	for i, it := range n.items {
		if ord == 0 || i == len(n.items)-1 {
			return it, before
		}
		ord--
		before = before.add(it.summary())
	}
	return nil, before
}
