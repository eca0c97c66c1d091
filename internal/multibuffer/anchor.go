package multibuffer

import (
	"github.com/dshills/weave/internal/textbuf"
)

// Anchor is a stable reference to a logical position. It pairs the
// excerpt it was created in with a buffer-local anchor, so it follows
// text through buffer edits and follows the excerpt through arrangement
// changes. Anchors are plain values: nothing registers them and nothing
// cleans them up. One becomes unresolvable only when its excerpt is
// removed.
type Anchor struct {
	Excerpt ExcerptID
	Text    textbuf.Anchor
}

// Bias returns which way the anchor leans at an insertion boundary.
func (a Anchor) Bias() textbuf.Bias { return a.Text.Bias }

// AnchorAt creates an anchor at the given logical offset. A boundary
// offset anchors into the following excerpt, matching ResolveOffset.
// Returns ErrInvalidRange for an offset outside the document and
// ErrNotFound for an empty arrangement.
func (s *Snapshot) AnchorAt(off ByteOffset, bias textbuf.Bias) (Anchor, error) {
	if off < 0 || off > s.Len() {
		return Anchor{}, ErrInvalidRange
	}
	e, local, _, ok := s.index.resolveOffset(off)
	if !ok {
		return Anchor{}, ErrNotFound
	}
	return Anchor{
		Excerpt: e.id,
		Text: textbuf.Anchor{
			Version: e.version,
			Offset:  e.start + local,
			Bias:    bias,
		},
	}, nil
}

// ResolveAnchor returns the anchor's logical offset in this snapshot.
// The position reflects every buffer edit folded into the snapshot and
// every arrangement change; a position that fell to a deleted region
// collapses to the deletion point, clamped into its excerpt. Returns
// ErrUnresolved when the excerpt has been removed or the buffer's history
// no longer reaches the anchor's version.
func (s *Snapshot) ResolveAnchor(a Anchor) (ByteOffset, error) {
	e, before, ok := s.index.lookup(a.Excerpt)
	if !ok {
		return 0, ErrUnresolved
	}
	off, err := s.resolveText(e, a.Text)
	if err != nil {
		return 0, err
	}
	return before.bytes + (off - e.start), nil
}

// resolveText resolves a buffer-local anchor to a buffer offset as of the
// excerpt's folded version, clamped into the excerpt's span.
func (s *Snapshot) resolveText(e *excerpt, a textbuf.Anchor) (textbuf.ByteOffset, error) {
	off := a.Offset
	if a.Version != e.version {
		var err error
		off, err = s.state(e).buf.ResolveAnchorAt(a, e.version)
		if err != nil {
			return 0, ErrUnresolved
		}
	}
	if off < e.start {
		off = e.start
	}
	if off > e.end {
		off = e.end
	}
	return off, nil
}

// CompareAnchors orders two anchors within this snapshot: -1, 0, or +1
// as a sorts before, equal to, or after b. Anchors in different excerpts
// order by display position even when both resolve to the same logical
// offset, so positions around a zero-length excerpt keep a stable order;
// within one excerpt, equal offsets place a right-leaning anchor before a
// left-leaning one. Returns ErrUnresolved if either anchor's excerpt is
// gone.
func (s *Snapshot) CompareAnchors(a, b Anchor) (int, error) {
	ea, beforeA, okA := s.index.lookup(a.Excerpt)
	if !okA {
		return 0, ErrUnresolved
	}
	eb, beforeB, okB := s.index.lookup(b.Excerpt)
	if !okB {
		return 0, ErrUnresolved
	}

	offA, err := s.resolveText(ea, a.Text)
	if err != nil {
		return 0, err
	}
	offB, err := s.resolveText(eb, b.Text)
	if err != nil {
		return 0, err
	}

	logA := beforeA.bytes + (offA - ea.start)
	logB := beforeB.bytes + (offB - eb.start)
	switch {
	case logA < logB:
		return -1, nil
	case logA > logB:
		return 1, nil
	}

	// Same logical offset: display order of the excerpts breaks the tie,
	// then bias within a shared excerpt.
	switch {
	case beforeA.count < beforeB.count:
		return -1, nil
	case beforeA.count > beforeB.count:
		return 1, nil
	}
	if a.Bias() != b.Bias() {
		if a.Bias() == textbuf.BiasRight {
			return -1, nil
		}
		return 1, nil
	}
	return 0, nil
}
