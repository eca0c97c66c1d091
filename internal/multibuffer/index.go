package multibuffer

import (
	"slices"

	"github.com/dshills/weave/internal/textbuf"
)

// idLoc maps an excerpt id to its current locator. Tables are kept
// sorted by id and copied on structural change, so snapshots keep the
// mapping they were taken with.
type idLoc struct {
	id  ExcerptID
	loc locator
}

func idLocCompare(e idLoc, id ExcerptID) int {
	switch {
	case e.id < id:
		return -1
	case e.id > id:
		return 1
	}
	return 0
}

// excerptIndex is the ordered arrangement of excerpts. It is a value
// type: mutating methods return a new index that shares structure with
// the old one. Content refreshes reuse the id table untouched; only
// insert, remove, and move copy it.
type excerptIndex struct {
	root *exNode
	ids  []idLoc
}

func newExcerptIndex() excerptIndex {
	return excerptIndex{root: newExLeaf(nil)}
}

func (x excerptIndex) count() int { return x.root.sum.count }

func (x excerptIndex) bytes() textbuf.ByteOffset { return x.root.sum.bytes }

func (x excerptIndex) newlines() uint32 { return x.root.sum.lines }

// locatorOf returns the locator currently assigned to id.
func (x excerptIndex) locatorOf(id ExcerptID) (locator, bool) {
	i, ok := slices.BinarySearchFunc(x.ids, id, idLocCompare)
	if !ok {
		return nil, false
	}
	return x.ids[i].loc, true
}

// lookup returns the excerpt record for id and the summary before it.
func (x excerptIndex) lookup(id ExcerptID) (*excerpt, exSummary, bool) {
	loc, ok := x.locatorOf(id)
	if !ok {
		return nil, exSummary{}, false
	}
	return x.root.seekLocator(loc)
}

// ordinalOf returns id's display position.
func (x excerptIndex) ordinalOf(id ExcerptID) (int, bool) {
	_, before, ok := x.lookup(id)
	if !ok {
		return 0, false
	}
	return before.count, true
}

// insert places e at display ordinal ord, 0 <= ord <= count. The
// excerpt's locator is assigned here from its new neighbors; e must not
// be linked into any other tree yet.
func (x excerptIndex) insert(ord int, e *excerpt) excerptIndex {
	left, right := locatorMin, locatorMax
	if ord > 0 {
		prev, _ := x.root.entryAt(ord - 1)
		left = prev.loc
	}
	if ord < x.count() {
		next, _ := x.root.entryAt(ord)
		right = next.loc
	}
	e.loc = locatorBetween(left, right)

	at, _ := slices.BinarySearchFunc(x.ids, e.id, idLocCompare)
	ids := make([]idLoc, 0, len(x.ids)+1)
	ids = append(ids, x.ids[:at]...)
	ids = append(ids, idLoc{id: e.id, loc: e.loc})
	ids = append(ids, x.ids[at:]...)

	return excerptIndex{root: exInsertAt(x.root, ord, e), ids: ids}
}

// remove drops id from the arrangement, returning the removed record and
// the summary that preceded it.
func (x excerptIndex) remove(id ExcerptID) (excerptIndex, *excerpt, exSummary, bool) {
	at, ok := slices.BinarySearchFunc(x.ids, id, idLocCompare)
	if !ok {
		return x, nil, exSummary{}, false
	}
	e, before, ok := x.root.seekLocator(x.ids[at].loc)
	if !ok {
		return x, nil, exSummary{}, false
	}

	ids := make([]idLoc, 0, len(x.ids)-1)
	ids = append(ids, x.ids[:at]...)
	ids = append(ids, x.ids[at+1:]...)

	return excerptIndex{root: exRemoveAt(x.root, before.count), ids: ids}, e, before, true
}

// move reassigns id to display ordinal dst, interpreted against the
// arrangement without the moving excerpt.
func (x excerptIndex) move(id ExcerptID, dst int) (excerptIndex, bool) {
	x2, e, _, ok := x.remove(id)
	if !ok {
		return x, false
	}
	moved := *e
	return x2.insert(dst, &moved), true
}

// replace swaps in a refreshed record for the excerpt with e's id. The
// locator must be carried over from the old record; the id table is
// shared untouched.
func (x excerptIndex) replace(e *excerpt) (excerptIndex, bool) {
	_, before, ok := x.root.seekLocator(e.loc)
	if !ok {
		return x, false
	}
	return excerptIndex{root: exReplaceAt(x.root, before.count, e), ids: x.ids}, true
}

// summaryBefore returns the summary of the first ord excerpts.
func (x excerptIndex) summaryBefore(ord int) exSummary {
	if ord <= 0 || x.count() == 0 {
		return exSummary{}
	}
	if ord >= x.count() {
		return x.root.sum
	}
	_, before := x.root.entryAt(ord)
	return before
}

// resolveOffset maps a logical offset to the excerpt containing it and
// the excerpt-local offset. ok is false only for an empty arrangement.
func (x excerptIndex) resolveOffset(off textbuf.ByteOffset) (*excerpt, textbuf.ByteOffset, exSummary, bool) {
	e, before := x.root.seekOffset(off)
	if e == nil {
		return nil, 0, before, false
	}
	local := off - before.bytes
	if local > e.len() {
		local = e.len()
	}
	return e, local, before, true
}

// logicalStart returns the logical offset where id begins.
func (x excerptIndex) logicalStart(id ExcerptID) (textbuf.ByteOffset, *excerpt, bool) {
	e, before, ok := x.lookup(id)
	if !ok {
		return 0, nil, false
	}
	return before.bytes, e, true
}

// eachInRange visits excerpts whose logical span intersects [start, end)
// in display order. Zero-length excerpts are visited when their position
// falls inside the half-open range; an empty range intersects nothing.
func (x excerptIndex) eachInRange(start, end textbuf.ByteOffset, fn func(*excerpt, exSummary) bool) {
	if start >= end {
		return
	}
	x.root.each(func(e *excerpt, before exSummary) bool {
		b := before.bytes
		if b >= end {
			return false
		}
		if e.len() == 0 {
			if start <= b {
				return fn(e, before)
			}
			return true
		}
		if start < b+e.len() {
			return fn(e, before)
		}
		return true
	})
}
