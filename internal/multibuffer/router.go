package multibuffer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/weave/internal/textbuf"
)

// BufferEdit records one buffer-local edit applied on behalf of a
// logical edit.
type BufferEdit struct {
	BufferID BufferID
	Excerpt  ExcerptID
	Edit     textbuf.Edit
	Version  textbuf.Version
}

// EditOutcome reports a completed logical edit: the buffer edits that
// realized it in display order, the logical range the replacement now
// occupies, and the event version published for it.
type EditOutcome struct {
	Buffers []BufferEdit
	Range   Range
	Version uint64
}

// editSpan is one excerpt's share of a logical edit, in the buffer-local
// coordinates of the binding's folded version.
type editSpan struct {
	excerpt *excerpt
	binding *bufferBinding
	r       textbuf.Range
	text    string
}

// Edit replaces the logical range r with text. The range may span any
// number of excerpts: the replacement text goes to the first spanned
// excerpt's buffer and the later spanned portions become deletions in
// theirs. The whole edit is validated first and applied as a unit; if any
// target excerpt or buffer is read-only, nothing is applied and
// ErrReadOnlyExcerpt is returned.
//
// One event is published for the entire edit, covering the logical range
// the replacement occupies. Changes to the same buffers from other
// writers that land while the edit is in flight are folded afterward,
// each with its own event, before the edit's event.
func (m *MultiBuffer) Edit(r Range, text string) (EditOutcome, error) {
	m.mu.Lock()

	// Plan against the current arrangement, then claim every target
	// binding. A binding already claimed by an in-flight edit forces a
	// wait and a fresh plan, so edits sharing a buffer apply one at a
	// time and never see each other half done.
	var spans []editSpan
	for {
		if r.Start < 0 || !r.IsValid() || r.End > m.index.bytes() {
			m.mu.Unlock()
			return EditOutcome{}, ErrInvalidRange
		}
		if m.index.count() == 0 {
			m.mu.Unlock()
			return EditOutcome{}, ErrNotFound
		}
		if r.IsEmpty() && text == "" {
			out := EditOutcome{Version: m.version, Range: Range{Start: r.Start, End: r.Start}}
			m.mu.Unlock()
			return out, nil
		}

		spans = m.planSpansLocked(r, text)
		for _, sp := range spans {
			if sp.excerpt.readOnly || sp.binding.buf.ReadOnly() {
				m.mu.Unlock()
				return EditOutcome{}, ErrReadOnlyExcerpt
			}
		}

		busy := false
		for _, sp := range spans {
			if sp.binding.routing {
				busy = true
				break
			}
		}
		if !busy {
			break
		}
		m.routeCond.Wait()
	}

	// Display-ordered unique bindings, flagged so their notifications
	// queue until the edit settles.
	var affected []*bufferBinding
	for _, sp := range spans {
		if !sp.binding.routing {
			sp.binding.routing = true
			affected = append(affected, sp.binding)
		}
	}
	m.mu.Unlock()

	applied, failErr := applySpans(spans)
	var undone []appliedEdit
	if failErr != nil {
		undone = rollback(applied, m.logger)
	}

	m.mu.Lock()
	own := make(map[*bufferBinding][]textbuf.Version)
	for _, ap := range applied {
		own[ap.binding] = append(own[ap.binding], ap.change.Version)
	}
	for _, u := range undone {
		own[u.binding] = append(own[u.binding], u.change.Version)
	}

	type external struct {
		binding *bufferBinding
		change  textbuf.Change
	}
	var externals []external
	extCount := make(map[*bufferBinding]int)
	for _, b := range affected {
		b.routing = false
		for _, qc := range b.queued {
			if containsVersion(own[b], qc.Version) {
				continue
			}
			externals = append(externals, external{binding: b, change: qc})
			extCount[b]++
		}
		b.queued = nil
	}
	m.routeCond.Broadcast()

	preSpans := make(map[*bufferBinding]Range, len(affected))
	for _, b := range affected {
		preSpans[b], _ = m.bufferSpanLocked(b)
	}
	for _, b := range affected {
		m.refreshLocked(b)
	}

	ownChanges := make(map[*bufferBinding][]textbuf.Change)
	for _, ap := range applied {
		ownChanges[ap.binding] = append(ownChanges[ap.binding], ap.change)
	}
	for _, b := range affected {
		if failErr != nil && extCount[b] == 0 {
			// Rolled back and nothing external landed: the buffer is
			// back where it was.
			continue
		}
		var single *textbuf.Change
		if failErr == nil && len(ownChanges[b]) == 1 && extCount[b] == 0 {
			c := ownChanges[b][0]
			single = &c
		}
		m.updateDiffLocked(b, single)
	}

	for _, ex := range externals {
		post, _ := m.bufferSpanLocked(ex.binding)
		m.publishLocked(Event{
			Origin:   OriginExternal,
			Range:    preSpans[ex.binding],
			NewRange: post,
			Buffers:  []BufferID{ex.binding.id},
		})
	}

	var out EditOutcome
	if failErr == nil {
		edited := make([]BufferID, 0, len(affected))
		for _, b := range affected {
			edited = append(edited, b.id)
		}
		newRange := Range{Start: r.Start, End: r.Start + textbuf.ByteOffset(len(text))}
		m.publishLocked(Event{Origin: OriginEdit, Range: r, NewRange: newRange, Buffers: edited})
		out = EditOutcome{
			Buffers: make([]BufferEdit, 0, len(applied)),
			Range:   newRange,
			Version: m.version,
		}
		for _, ap := range applied {
			out.Buffers = append(out.Buffers, BufferEdit{
				BufferID: ap.binding.id,
				Excerpt:  ap.excerpt.id,
				Edit:     ap.change.ToEdit(),
				Version:  ap.change.Version,
			})
		}
	}
	m.mu.Unlock()
	m.drainEvents()

	if failErr != nil {
		return EditOutcome{}, mapBufferError(failErr)
	}
	return out, nil
}

// Insert inserts text at a logical offset.
func (m *MultiBuffer) Insert(off ByteOffset, text string) (EditOutcome, error) {
	return m.Edit(Range{Start: off, End: off}, text)
}

// Delete removes the logical range [start, end).
func (m *MultiBuffer) Delete(start, end ByteOffset) (EditOutcome, error) {
	return m.Edit(Range{Start: start, End: end}, "")
}

// planSpansLocked splits a logical edit into per-excerpt buffer edits.
// A pure insert targets the excerpt ResolveOffset picks; a spanning edit
// hands the replacement text to the first spanned excerpt and turns the
// rest into deletions. Zero-length excerpts inside the range are left
// alone: they hold no bytes the edit could touch.
func (m *MultiBuffer) planSpansLocked(r Range, text string) []editSpan {
	if r.IsEmpty() {
		e, local, _, _ := m.index.resolveOffset(r.Start)
		at := e.start + local
		return []editSpan{{
			excerpt: e,
			binding: m.bindings[e.bufferID],
			r:       textbuf.Range{Start: at, End: at},
			text:    text,
		}}
	}

	var spans []editSpan
	m.index.eachInRange(r.Start, r.End, func(e *excerpt, before exSummary) bool {
		if e.len() == 0 {
			return true
		}
		lo := e.start
		if r.Start > before.bytes {
			lo = e.start + (r.Start - before.bytes)
		}
		hi := e.end
		if r.End < before.bytes+e.len() {
			hi = e.start + (r.End - before.bytes)
		}
		sp := editSpan{
			excerpt: e,
			binding: m.bindings[e.bufferID],
			r:       textbuf.Range{Start: lo, End: hi},
		}
		if len(spans) == 0 {
			sp.text = text
		}
		spans = append(spans, sp)
		return true
	})
	return spans
}

// appliedEdit pairs a span with the change its application produced.
type appliedEdit struct {
	excerpt *excerpt
	binding *bufferBinding
	change  textbuf.Change
}

// applySpans applies the spans in display order, stopping at the first
// failure. When several spans target the same buffer, later spans are
// shifted through the changes earlier ones produced; a span that loses
// part of its range to an earlier overlapping span shrinks rather than
// deleting text twice.
func applySpans(spans []editSpan) ([]appliedEdit, error) {
	applied := make([]appliedEdit, 0, len(spans))
	for _, sp := range spans {
		rr := sp.r
		for _, ap := range applied {
			if ap.binding == sp.binding {
				rr = textbuf.TransformRange(rr, ap.change, textbuf.BiasRight, textbuf.BiasLeft)
			}
		}
		_, change, err := sp.binding.buf.ApplyEdit(textbuf.NewEdit(rr, sp.text))
		if err != nil {
			return applied, err
		}
		applied = append(applied, appliedEdit{
			excerpt: sp.excerpt,
			binding: sp.binding,
			change:  change,
		})
	}
	return applied, nil
}

// rollback undoes applied edits in reverse order after a mid-edit
// failure, restoring every touched buffer. It returns the undo edits it
// managed to apply so their versions can be claimed as the router's own.
func rollback(applied []appliedEdit, logger *zap.Logger) []appliedEdit {
	undone := make([]appliedEdit, 0, len(applied))
	for i := len(applied) - 1; i >= 0; i-- {
		ap := applied[i]
		undo := ap.change.Invert().ToEdit()
		_, change, err := ap.binding.buf.ApplyEdit(undo)
		if err != nil {
			logger.Error("rollback of partial edit failed",
				zap.Stringer("buffer", ap.binding.id),
				zap.Stringer("range", undo.Range),
				zap.Error(err))
			continue
		}
		undone = append(undone, appliedEdit{
			excerpt: ap.excerpt,
			binding: ap.binding,
			change:  change,
		})
	}
	return undone
}

func containsVersion(vs []textbuf.Version, v textbuf.Version) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// mapBufferError lifts buffer-level failures into this package's error
// vocabulary.
func mapBufferError(err error) error {
	switch {
	case errors.Is(err, textbuf.ErrReadOnly):
		return ErrReadOnlyExcerpt
	case errors.Is(err, textbuf.ErrRangeInvalid), errors.Is(err, textbuf.ErrOffsetOutOfRange):
		return ErrInvalidRange
	}
	return err
}
