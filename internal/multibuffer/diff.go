package multibuffer

import (
	"context"
	"strings"

	"github.com/dshills/weave/internal/rope"
	"github.com/dshills/weave/internal/textbuf"
	"github.com/dshills/weave/internal/textdiff"
)

// diffSyncLineLimit is the default bound on the work a fold recomputes
// inline. A window or full diff over more lines than this moves to a
// background goroutine. WithDiffSyncLimit overrides it.
const diffSyncLineLimit = 2048

// diffState carries a buffer's diff overlay: the designated base text and
// the hunks between it and the buffer's current text, in buffer line
// coordinates. hunks always equals the full diff of base against the text
// of the binding's folded snapshot, except while pending is set, during
// which hunks is the diff against an earlier snapshot.
//
// gen invalidates background recomputes: a completion whose generation no
// longer matches is discarded.
type diffState struct {
	base      rope.Rope
	baseLines []string
	hunks     []textdiff.Hunk
	pending   bool
	cancel    context.CancelFunc
	gen       uint64
}

// DiffHunk is one run of difference between an excerpt's current text and
// its buffer's diff base, projected into logical coordinates. Logical
// covers the hunk's current lines clipped to the excerpt; for a pure
// deletion it collapses to the point where the removed base lines would
// appear. BaseStart and BaseEnd give the half-open line range in the
// base text.
type DiffHunk struct {
	Excerpt   ExcerptID
	Kind      textdiff.Kind
	Logical   Range
	BaseStart uint32
	BaseEnd   uint32
}

// SetDiffBase designates base as the comparison text for every excerpt of
// the given buffer and computes the overlay against it. Large inputs are
// diffed on a background goroutine; until that completes the affected
// excerpts report DiffPending. Returns ErrNotFound if no excerpt
// references the buffer.
func (m *MultiBuffer) SetDiffBase(id BufferID, base string) error {
	m.mu.Lock()
	b := m.bindings[id]
	if b == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	if b.diff != nil && b.diff.cancel != nil {
		b.diff.cancel()
	}
	st := &diffState{base: rope.FromString(base), baseLines: strings.Split(base, "\n")}
	if b.diff != nil {
		st.gen = b.diff.gen
	}
	b.diff = st
	m.recomputeDiffLocked(b)

	span, _ := m.bufferSpanLocked(b)
	m.publishLocked(Event{
		Origin:   OriginDiff,
		Range:    span,
		NewRange: span,
		Buffers:  []BufferID{id},
	})
	m.mu.Unlock()
	m.drainEvents()
	return nil
}

// ClearDiffBase removes the buffer's diff base and every hunk derived
// from it. Returns ErrNotFound if the buffer has no base set.
func (m *MultiBuffer) ClearDiffBase(id BufferID) error {
	m.mu.Lock()
	b := m.bindings[id]
	if b == nil || b.diff == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	if b.diff.cancel != nil {
		b.diff.cancel()
	}
	b.diff = nil

	span, _ := m.bufferSpanLocked(b)
	m.publishLocked(Event{
		Origin:   OriginDiff,
		Range:    span,
		NewRange: span,
		Buffers:  []BufferID{id},
	})
	m.mu.Unlock()
	m.drainEvents()
	return nil
}

// recomputeDiffLocked rebuilds the overlay from scratch, inline when the
// input is small and in the background otherwise. Any in-flight
// background recompute is superseded either way.
func (m *MultiBuffer) recomputeDiffLocked(b *bufferBinding) {
	st := b.diff
	st.gen++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}

	curCount := int(b.snap.LineCount())
	if len(st.baseLines)+curCount <= m.syncLimit {
		st.hunks = textdiff.Lines(st.baseLines, b.snap.Rope().SplitLines(), m.diffOpts)
		st.pending = false
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.pending = true
	go m.backgroundDiff(ctx, b.id, st.gen, st.baseLines, b.snap.Rope())
}

// backgroundDiff computes a full overlay off the lock and installs it if
// its generation still stands. A canceled or superseded computation is
// discarded without touching the overlay.
func (m *MultiBuffer) backgroundDiff(ctx context.Context, id BufferID, gen uint64, baseLines []string, cur rope.Rope) {
	if ctx.Err() != nil {
		return
	}
	hunks := textdiff.Lines(baseLines, cur.SplitLines(), m.diffOpts)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	b := m.bindings[id]
	if b == nil || b.diff == nil || b.diff.gen != gen {
		m.mu.Unlock()
		return
	}
	b.diff.hunks = hunks
	b.diff.pending = false
	b.diff.cancel = nil

	span, _ := m.bufferSpanLocked(b)
	m.publishLocked(Event{
		Origin:   OriginDiff,
		Range:    span,
		NewRange: span,
		Buffers:  []BufferID{id},
	})
	m.mu.Unlock()
	m.drainEvents()
}

// updateDiffLocked folds a buffer change into the overlay. When the
// binding advanced by exactly the one given change, only a window around
// it is rediffed and spliced over the old hunks; otherwise the overlay is
// rebuilt. The caller publishes the event that carries the result.
func (m *MultiBuffer) updateDiffLocked(b *bufferBinding, c *textbuf.Change) {
	st := b.diff
	if st == nil {
		return
	}
	if c == nil || c.Version != b.lastSeen {
		m.recomputeDiffLocked(b)
		return
	}

	cur := b.snap.Rope()
	delta := strings.Count(c.NewText, "\n") - strings.Count(c.OldText, "\n")
	curCount := int(cur.LineCount())
	preCount := curCount - delta

	// Window around the change in post-change lines, one line of margin
	// so the splice edges sit on lines the edit did not touch.
	postFrom := int(cur.OffsetToPoint(c.NewRange.Start).Line) - 1
	if postFrom < 0 {
		postFrom = 0
	}
	postTo := int(cur.OffsetToPoint(c.NewRange.End).Line) + 2
	if postTo > curCount {
		postTo = curCount
	}

	// The same window in pre-change lines, grown to swallow every hunk it
	// touches. Hunks are sorted and disjoint, so one pass suffices.
	preFrom := postFrom
	preTo := postTo - delta
	for _, h := range st.hunks {
		hFrom, hTo := int(h.NewStart), int(h.NewEnd())
		if hTo < preFrom || hFrom > preTo {
			continue
		}
		if hFrom < preFrom {
			preFrom = hFrom
		}
		if hTo > preTo {
			preTo = hTo
		}
	}
	if preFrom < 0 {
		preFrom = 0
	}
	if preTo > preCount {
		preTo = preCount
	}

	// Window edges lie outside every hunk, so the base lines they map to
	// are the pre-change lines shifted by the deltas of the hunks before
	// them.
	baseFrom := preFrom - hunkDeltaBefore(st.hunks, preFrom)
	baseTo := preTo - hunkDeltaBefore(st.hunks, preTo)
	winFrom := preFrom
	winTo := preTo + delta

	if (baseTo-baseFrom)+(winTo-winFrom) > m.syncLimit {
		m.recomputeDiffLocked(b)
		return
	}

	winCur := make([]string, 0, winTo-winFrom)
	for i := winFrom; i < winTo; i++ {
		winCur = append(winCur, cur.LineText(uint32(i)))
	}
	winHunks := textdiff.Lines(st.baseLines[baseFrom:baseTo], winCur, m.diffOpts)
	for i := range winHunks {
		winHunks[i].OldStart += uint32(baseFrom)
		winHunks[i].NewStart += uint32(winFrom)
	}

	var out []textdiff.Hunk
	for _, h := range st.hunks {
		if int(h.NewEnd()) < preFrom {
			out = append(out, h)
		}
	}
	out = append(out, winHunks...)
	for _, h := range st.hunks {
		if int(h.NewStart) > preTo {
			h.NewStart = uint32(int(h.NewStart) + delta)
			out = append(out, h)
		}
	}

	st.gen++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.hunks = out
	st.pending = false
}

// hunkDeltaBefore sums the line deltas of the hunks that end at or before
// the pre-change line.
func hunkDeltaBefore(hunks []textdiff.Hunk, line int) int {
	total := 0
	for _, h := range hunks {
		if int(h.NewEnd()) > line {
			break
		}
		total += h.LineDelta()
	}
	return total
}

// DiffPending reports whether the excerpt's overlay lags its buffer: a
// background recompute covering it has been started and not yet landed.
func (s *Snapshot) DiffPending(id ExcerptID) (bool, error) {
	e, _, ok := s.index.lookup(id)
	if !ok {
		return false, ErrStaleExcerpt
	}
	st := s.state(e)
	return st.hasBase && st.pending, nil
}

// DiffHunks returns the excerpt's hunks against its buffer's diff base,
// in display order. An excerpt whose buffer has no base has none.
func (s *Snapshot) DiffHunks(id ExcerptID) ([]DiffHunk, error) {
	e, before, ok := s.index.lookup(id)
	if !ok {
		return nil, ErrStaleExcerpt
	}
	span := Range{Start: before.bytes, End: before.bytes + e.len()}
	return s.projectHunks(e, before, span), nil
}

// DiffHunksInRange returns the hunks of every excerpt intersecting the
// logical range, clipped to it, in display order.
func (s *Snapshot) DiffHunksInRange(r Range) []DiffHunk {
	var out []DiffHunk
	s.index.eachInRange(r.Start, r.End, func(e *excerpt, before exSummary) bool {
		out = append(out, s.projectHunks(e, before, r)...)
		return true
	})
	return out
}

// projectHunks maps a buffer's hunks into logical coordinates for one
// excerpt, dropping hunks outside it and clipping the rest to clip.
func (s *Snapshot) projectHunks(e *excerpt, before exSummary, clip Range) []DiffHunk {
	st := s.state(e)
	if st == nil || !st.hasBase || len(st.hunks) == 0 {
		return nil
	}
	var out []DiffHunk
	for _, h := range st.hunks {
		cs := st.snap.LineStartOffset(h.NewStart)
		ce := st.snap.LineStartOffset(h.NewEnd())
		if cs < e.start {
			cs = e.start
		}
		if ce > e.end {
			ce = e.end
		}
		if cs > ce || (cs == ce && h.Kind != textdiff.Deleted) {
			continue
		}

		logical := Range{
			Start: before.bytes + (cs - e.start),
			End:   before.bytes + (ce - e.start),
		}
		if logical.IsEmpty() {
			if logical.Start < clip.Start || logical.Start > clip.End {
				continue
			}
		} else {
			if !logical.Overlaps(clip) {
				continue
			}
			logical = logical.Intersect(clip)
		}

		out = append(out, DiffHunk{
			Excerpt:   e.id,
			Kind:      h.Kind,
			Logical:   logical,
			BaseStart: h.OldStart,
			BaseEnd:   h.OldEnd(),
		})
	}
	return out
}
