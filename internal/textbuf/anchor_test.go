package textbuf

import (
	"errors"
	"testing"
)

func insertChange(offset ByteOffset, text string) Change {
	return Change{
		Type:     ChangeInsert,
		Range:    Range{Start: offset, End: offset},
		NewRange: Range{Start: offset, End: offset + ByteOffset(len(text))},
		NewText:  text,
	}
}

func deleteChange(start, end ByteOffset) Change {
	return Change{
		Type:     ChangeDelete,
		Range:    Range{Start: start, End: end},
		NewRange: Range{Start: start, End: start},
	}
}

func replaceChange(start, end ByteOffset, text string) Change {
	return Change{
		Type:     ChangeReplace,
		Range:    Range{Start: start, End: end},
		NewRange: Range{Start: start, End: start + ByteOffset(len(text))},
		NewText:  text,
	}
}

func TestTransformOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset ByteOffset
		change Change
		bias   Bias
		want   ByteOffset
	}{
		{"insert before", 10, insertChange(5, "abc"), BiasLeft, 13},
		{"insert after", 10, insertChange(15, "abc"), BiasLeft, 10},
		{"insert at offset, left", 10, insertChange(10, "abc"), BiasLeft, 10},
		{"insert at offset, right", 10, insertChange(10, "abc"), BiasRight, 13},
		{"delete before", 10, deleteChange(2, 6), BiasLeft, 6},
		{"delete ending at offset", 10, deleteChange(6, 10), BiasLeft, 6},
		{"delete starting at offset", 10, deleteChange(10, 14), BiasLeft, 10},
		{"delete spanning, left", 10, deleteChange(8, 12), BiasLeft, 8},
		{"delete spanning, right", 10, deleteChange(8, 12), BiasRight, 8},
		{"replace spanning, left", 10, replaceChange(8, 12, "WXYZ"), BiasLeft, 8},
		{"replace spanning, right", 10, replaceChange(8, 12, "WXYZ"), BiasRight, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformOffset(tt.offset, tt.change, tt.bias); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTransformRange(t *testing.T) {
	r := Range{Start: 5, End: 10}

	got := TransformRange(r, insertChange(0, "xx"), BiasLeft, BiasRight)
	if got != (Range{Start: 7, End: 12}) {
		t.Errorf("shift: got %v, want [7:12)", got)
	}

	// A deletion swallowing the whole range collapses it.
	got = TransformRange(r, deleteChange(3, 12), BiasLeft, BiasRight)
	if got != (Range{Start: 3, End: 3}) {
		t.Errorf("collapse: got %v, want [3:3)", got)
	}
}

func TestAnchorAtOutOfRange(t *testing.T) {
	b := NewBufferFromString("hello")

	if _, err := b.AnchorAt(6, BiasLeft); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if _, err := b.AnchorAt(-1, BiasLeft); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if _, err := b.AnchorAt(5, BiasLeft); err != nil {
		t.Errorf("end of buffer is anchorable, got %v", err)
	}
}

func TestAnchorSurvivesEdits(t *testing.T) {
	b := NewBufferFromString("hello world")

	// Anchor on the 'w'.
	a, err := b.AnchorAt(6, BiasLeft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.Insert(0, ">> ")
	b.Delete(3, 9) // "hello " gone

	pos, err := b.ResolveAnchor(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.TextRange(pos, pos+5); got != "world" {
		t.Errorf("anchor drifted: text at %d is %q", pos, got)
	}
}

func TestAnchorBiasAtInsertionPoint(t *testing.T) {
	b := NewBufferFromString("ab")

	left, _ := b.AnchorAt(1, BiasLeft)
	right, _ := b.AnchorAt(1, BiasRight)

	b.Insert(1, "xyz")

	if pos, _ := b.ResolveAnchor(left); pos != 1 {
		t.Errorf("left bias: got %d, want 1", pos)
	}
	if pos, _ := b.ResolveAnchor(right); pos != 4 {
		t.Errorf("right bias: got %d, want 4", pos)
	}
}

func TestAnchorInDeletedRegion(t *testing.T) {
	b := NewBufferFromString("0123456789")

	a, _ := b.AnchorAt(5, BiasLeft)
	b.Replace(3, 8, "X")

	pos, err := b.ResolveAnchor(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != 3 {
		t.Errorf("got %d, want 3 (start of replacement)", pos)
	}
}

func TestAnchorExpired(t *testing.T) {
	b := NewBufferFromString("abcdef", WithMaxHistory(4))

	a, _ := b.AnchorAt(3, BiasLeft)

	// Exactly maxHistory edits: still reachable.
	for i := 0; i < 4; i++ {
		b.Insert(0, "x")
	}
	if pos, err := b.ResolveAnchor(a); err != nil || pos != 7 {
		t.Fatalf("got (%d, %v), want (7, nil)", pos, err)
	}

	// One more evicts the oldest change the anchor needs.
	b.Insert(0, "x")
	if _, err := b.ResolveAnchor(a); !errors.Is(err, ErrAnchorExpired) {
		t.Errorf("expected ErrAnchorExpired, got %v", err)
	}
}

func TestReanchor(t *testing.T) {
	b := NewBufferFromString("abcdef", WithMaxHistory(2))

	a, _ := b.AnchorAt(3, BiasLeft)

	// Re-anchoring after every edit keeps the anchor resolvable no
	// matter how far the history window slides.
	for i := 0; i < 10; i++ {
		b.Insert(0, "x")
		var err error
		a, err = b.Reanchor(a)
		if err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}

	pos, err := b.ResolveAnchor(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != 13 {
		t.Errorf("got %d, want 13", pos)
	}
}

func TestResolveAnchorAt(t *testing.T) {
	b := NewBufferFromString("abc")

	a, _ := b.AnchorAt(1, BiasRight)
	b.Insert(0, "XX") // version 2
	b.Insert(0, "YY") // version 3

	if pos, err := b.ResolveAnchorAt(a, 2); err != nil || pos != 3 {
		t.Errorf("at v2: got (%d, %v), want (3, nil)", pos, err)
	}
	if pos, err := b.ResolveAnchorAt(a, 3); err != nil || pos != 5 {
		t.Errorf("at v3: got (%d, %v), want (5, nil)", pos, err)
	}

	// A version before the anchor's own cannot be resolved.
	late, _ := b.AnchorAt(0, BiasLeft)
	if _, err := b.ResolveAnchorAt(late, 2); !errors.Is(err, ErrAnchorExpired) {
		t.Errorf("expected ErrAnchorExpired, got %v", err)
	}
}

func TestAnchorTracksTextProperty(t *testing.T) {
	b := NewBufferFromString("The quick brown fox")

	// Anchor the word "brown" on both sides.
	start, _ := b.AnchorAt(10, BiasLeft)
	end, _ := b.AnchorAt(15, BiasRight)

	edits := []Edit{
		NewInsert(0, "# "),
		NewInsert(4, "very "),
		NewDelete(0, 2),
		NewInsert(22, "!"),
	}
	for _, e := range edits {
		if _, _, err := b.ApplyEdit(e); err != nil {
			t.Fatalf("edit %v: %v", e, err)
		}
	}

	s, err := b.ResolveAnchor(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, err := b.ResolveAnchor(end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.TextRange(s, e); got != "brown" {
		t.Errorf("anchored range drifted: got %q", got)
	}
}
