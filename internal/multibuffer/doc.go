// Package multibuffer composes excerpts of many text buffers into one
// logical document with contiguous coordinates. Search results, compiler
// diagnostics, and review views all need the same thing: slices of
// otherwise unrelated buffers stitched together so that offsets, line
// numbers, anchors, and edits work across the whole arrangement as if it
// were a single file.
//
// Excerpts live in a persistent ordered tree summarized by byte and
// newline counts, so inserting, removing, and reordering them is
// O(log n), as is translating between logical and buffer-local
// positions. Excerpt boundaries are buffer anchors: an edit anywhere in
// an underlying buffer moves or resizes the excerpts that show it, and
// the arrangement finds out through the buffer's own change
// subscription.
//
// Edits flow the other way through Edit, which splits a logical range
// into per-buffer edits, applies them as a unit, and publishes exactly
// one event for the outcome. An edit spanning several excerpts places
// its replacement text in the first one and deletes the spanned parts of
// the rest.
//
// Readers never lock the arrangement: every mutation publishes an
// immutable Snapshot, and all queries, anchor resolution included, run
// against a snapshot. A typical view loop subscribes for events and
// re-reads the snapshot when one arrives:
//
//	mb := multibuffer.New(reg)
//	id, _ := mb.AppendExcerpt(multibuffer.ExcerptSpec{
//		BufferID: bufID,
//		Range:    textbuf.Range{Start: 0, End: 120},
//	})
//
//	mb.Subscribe(func(ev multibuffer.Event) {
//		snap := mb.Snapshot()
//		render(snap.TextRange(ev.NewRange.Start, ev.NewRange.End))
//	})
//
//	mb.Edit(multibuffer.Range{Start: 10, End: 14}, "new text")
//	_ = id
//
// A diff overlay can be attached per buffer with SetDiffBase; hunks are
// maintained incrementally as edits fold in, recomputed in the
// background when too large to fold inline, and queried per excerpt in
// logical coordinates.
package multibuffer
