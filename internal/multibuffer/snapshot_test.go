package multibuffer

import (
	"errors"
	"testing"

	"github.com/dshills/weave/internal/textbuf"
)

// Arrangement used by the line-math tests: the first excerpt does not
// end in a newline, so logical line 1 ("twothree") spans the seam.
//
//	logical: "one\ntwothree\nfour\n"
//	lines:   0 "one"  1 "twothree"  2 "four"  3 ""
func seamFixture(t *testing.T) (*MultiBuffer, *Snapshot) {
	t.Helper()
	src := mapSource{}
	idA := src.add("one\ntwo")
	idB := src.add("three\nfour\n")
	m := New(src)
	t.Cleanup(m.Close)

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 7}})
	m.AppendExcerpt(ExcerptSpec{BufferID: idB, Range: textbuf.Range{Start: 0, End: 11}})
	return m, m.Snapshot()
}

func TestLineCountAcrossSeam(t *testing.T) {
	_, snap := seamFixture(t)

	if snap.Len() != 18 {
		t.Fatalf("len: %d", snap.Len())
	}
	if got := snap.LineCount(); got != 4 {
		t.Errorf("lines: got %d, want 4", got)
	}
	if snap.Text() != "one\ntwothree\nfour\n" {
		t.Errorf("text: %q", snap.Text())
	}
}

func TestLineOffsets(t *testing.T) {
	_, snap := seamFixture(t)

	starts := []ByteOffset{0, 4, 13, 18}
	ends := []ByteOffset{3, 12, 17, 18}
	for line := uint32(0); line < 4; line++ {
		if got := snap.LineStartOffset(line); got != starts[line] {
			t.Errorf("start of line %d: got %d, want %d", line, got, starts[line])
		}
		if got := snap.LineEndOffset(line); got != ends[line] {
			t.Errorf("end of line %d: got %d, want %d", line, got, ends[line])
		}
	}

	// Past the last line everything clamps to the document end.
	if got := snap.LineStartOffset(99); got != 18 {
		t.Errorf("start past last: %d", got)
	}
	if got := snap.LineEndOffset(99); got != 18 {
		t.Errorf("end past last: %d", got)
	}
}

func TestLineText(t *testing.T) {
	_, snap := seamFixture(t)

	want := []string{"one", "twothree", "four", ""}
	for line, text := range want {
		if got := snap.LineText(uint32(line)); got != text {
			t.Errorf("line %d: got %q, want %q", line, got, text)
		}
	}
}

func TestOffsetToPoint(t *testing.T) {
	_, snap := seamFixture(t)

	tests := []struct {
		off  ByteOffset
		want Point
	}{
		{0, Point{Line: 0, Column: 0}},
		{3, Point{Line: 0, Column: 3}},  // the newline itself
		{5, Point{Line: 1, Column: 1}},  // "w" of the seam line
		{9, Point{Line: 1, Column: 5}},  // "r", past the seam
		{13, Point{Line: 2, Column: 0}},
		{17, Point{Line: 2, Column: 4}},
		{18, Point{Line: 3, Column: 0}},
		{-1, Point{Line: 0, Column: 0}}, // clamps
		{99, Point{Line: 3, Column: 0}}, // clamps
	}
	for _, tt := range tests {
		if got := snap.OffsetToPoint(tt.off); got != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestPointToOffset(t *testing.T) {
	_, snap := seamFixture(t)

	tests := []struct {
		p    Point
		want ByteOffset
	}{
		{Point{Line: 0, Column: 0}, 0},
		{Point{Line: 1, Column: 0}, 4},
		{Point{Line: 1, Column: 5}, 9},
		{Point{Line: 1, Column: 99}, 12}, // column clamps to line end
		{Point{Line: 2, Column: 4}, 17},
		{Point{Line: 3, Column: 0}, 18},
		{Point{Line: 99, Column: 0}, 18}, // line clamps to document end
	}
	for _, tt := range tests {
		if got := snap.PointToOffset(tt.p); got != tt.want {
			t.Errorf("%+v: got %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestPointRoundTrip(t *testing.T) {
	_, snap := seamFixture(t)

	for off := ByteOffset(0); off <= snap.Len(); off++ {
		p := snap.OffsetToPoint(off)
		if back := snap.PointToOffset(p); back != off {
			t.Errorf("offset %d -> %+v -> %d", off, p, back)
		}
	}
}

// An excerpt that starts mid-line in its buffer still produces logical
// lines counted from zero.
func TestLineMathMidBufferExcerpt(t *testing.T) {
	src := mapSource{}
	idC := src.add("alpha\nbeta\ngamma")
	m := New(src)
	defer m.Close()

	// "ta\ngamma": the tail of "beta" plus the last line.
	m.AppendExcerpt(ExcerptSpec{BufferID: idC, Range: textbuf.Range{Start: 8, End: 16}})
	snap := m.Snapshot()

	if snap.Text() != "ta\ngamma" {
		t.Fatalf("text: %q", snap.Text())
	}
	if got := snap.LineCount(); got != 2 {
		t.Errorf("lines: %d", got)
	}
	if got := snap.LineText(0); got != "ta" {
		t.Errorf("line 0: %q", got)
	}
	if got := snap.LineText(1); got != "gamma" {
		t.Errorf("line 1: %q", got)
	}
	if got := snap.OffsetToPoint(5); (got != Point{Line: 1, Column: 2}) {
		t.Errorf("point: %+v", got)
	}
	if got := snap.PointToOffset(Point{Line: 1, Column: 2}); got != 5 {
		t.Errorf("offset: %d", got)
	}
}

func TestEmptySnapshotLineMath(t *testing.T) {
	m := New(mapSource{})
	defer m.Close()
	snap := m.Snapshot()

	if !snap.IsEmpty() || snap.LineCount() != 1 {
		t.Fatalf("empty: %v, lines %d", snap.IsEmpty(), snap.LineCount())
	}
	if snap.LineText(0) != "" {
		t.Errorf("line 0: %q", snap.LineText(0))
	}
	if snap.LineStartOffset(0) != 0 || snap.LineEndOffset(0) != 0 {
		t.Errorf("offsets: %d, %d", snap.LineStartOffset(0), snap.LineEndOffset(0))
	}
	if got := snap.PointToOffset(Point{Line: 5, Column: 7}); got != 0 {
		t.Errorf("point past end: %d", got)
	}
}

func TestTextRangeClamps(t *testing.T) {
	_, snap := seamFixture(t)

	tests := []struct {
		start, end ByteOffset
		want       string
	}{
		{-5, 100, "one\ntwothree\nfour\n"},
		{4, 12, "twothree"}, // spans the seam
		{6, 9, "oth"},
		{7, 7, ""},
		{12, 3, ""}, // inverted reads as empty
	}
	for _, tt := range tests {
		if got := snap.TextRange(tt.start, tt.end); got != tt.want {
			t.Errorf("[%d,%d): got %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestToLogical(t *testing.T) {
	m, snap := seamFixture(t)

	infos := snap.Excerpts()
	if len(infos) != 2 {
		t.Fatalf("excerpts: %d", len(infos))
	}

	if off, err := snap.ToLogical(infos[1].ID, 2); err != nil || off != 9 {
		t.Errorf("got %d, %v", off, err)
	}
	if off, err := snap.ToLogical(infos[0].ID, 7); err != nil || off != 7 {
		t.Errorf("at excerpt end: got %d, %v", off, err)
	}
	if _, err := snap.ToLogical(infos[0].ID, 8); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("past excerpt end: %v", err)
	}
	if _, err := snap.ToLogical(infos[0].ID, -1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("negative: %v", err)
	}

	m.RemoveExcerpt(infos[0].ID)
	if _, err := m.Snapshot().ToLogical(infos[0].ID, 0); !errors.Is(err, ErrStaleExcerpt) {
		t.Errorf("removed: %v", err)
	}
	// The old snapshot still resolves it.
	if off, err := snap.ToLogical(infos[0].ID, 3); err != nil || off != 3 {
		t.Errorf("old snapshot: got %d, %v", off, err)
	}
}
