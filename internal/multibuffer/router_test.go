package multibuffer

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dshills/weave/internal/textbuf"
)

func TestEditWithinOneExcerpt(t *testing.T) {
	src := mapSource{}
	idA := src.add("hello world")
	m := New(src)
	defer m.Close()

	e1, _ := m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 11}})

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	out, err := m.Edit(Range{Start: 6, End: 11}, "there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Text(); got != "hello there" {
		t.Errorf("got %q", got)
	}
	if got := src[idA].Text(); got != "hello there" {
		t.Errorf("buffer: %q", got)
	}

	if len(out.Buffers) != 1 {
		t.Fatalf("expected 1 buffer edit, got %d", len(out.Buffers))
	}
	be := out.Buffers[0]
	if be.BufferID != idA || be.Excerpt != e1 {
		t.Errorf("buffer edit target: %+v", be)
	}
	if be.Edit.Range != (textbuf.Range{Start: 6, End: 11}) || be.Edit.NewText != "there" {
		t.Errorf("buffer edit: %+v", be.Edit)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Range != (Range{Start: 6, End: 11}) || events[0].NewRange != (Range{Start: 6, End: 11}) {
		t.Errorf("event: %+v", events[0])
	}
	if out.Version != events[0].Version {
		t.Errorf("outcome version %d, event version %d", out.Version, events[0].Version)
	}
}

// An edit bridging two excerpts puts the replacement in the first
// spanned buffer and deletes the spanned text from the rest, as one
// atomic operation with one event.
func TestEditBridgesExcerpts(t *testing.T) {
	src := mapSource{}
	idA := src.add(strings.Repeat("a", 50))
	idB := src.add("012345678901234567890123456789")
	m := New(src)
	defer m.Close()

	e1, _ := m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 50}})
	e2, _ := m.AppendExcerpt(ExcerptSpec{BufferID: idB, Range: textbuf.Range{Start: 0, End: 30}})

	if id, local, err := m.ResolveOffset(55); err != nil || id != e2 || local != 5 {
		t.Fatalf("resolve(55): got (%v, %d, %v), want (%v, 5)", id, local, err, e2)
	}

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	out, err := m.Edit(Range{Start: 48, End: 52}, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := src[idA].Text(); got != strings.Repeat("a", 48)+"X" {
		t.Errorf("buffer a: %q", got)
	}
	if got := src[idB].Text(); got != "2345678901234567890123456789" {
		t.Errorf("buffer b: %q", got)
	}
	if got := m.Text(); got != strings.Repeat("a", 48)+"X"+"2345678901234567890123456789" {
		t.Errorf("logical: %q", got)
	}
	if m.Len() != 77 {
		t.Errorf("len: %d", m.Len())
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Range != (Range{Start: 48, End: 52}) || events[0].NewRange != (Range{Start: 48, End: 49}) {
		t.Errorf("event: %+v", events[0])
	}

	if out.Range != (Range{Start: 48, End: 49}) {
		t.Errorf("outcome range: %v", out.Range)
	}
	if len(out.Buffers) != 2 {
		t.Fatalf("expected 2 buffer edits, got %d", len(out.Buffers))
	}
	if out.Buffers[0].BufferID != idA || out.Buffers[0].Excerpt != e1 {
		t.Errorf("first edit target: %+v", out.Buffers[0])
	}
	if out.Buffers[0].Edit.Range != (textbuf.Range{Start: 48, End: 50}) || out.Buffers[0].Edit.NewText != "X" {
		t.Errorf("first edit: %+v", out.Buffers[0].Edit)
	}
	if out.Buffers[1].BufferID != idB || out.Buffers[1].Edit.NewText != "" {
		t.Errorf("second edit: %+v", out.Buffers[1])
	}
	if out.Buffers[1].Edit.Range != (textbuf.Range{Start: 0, End: 2}) {
		t.Errorf("second edit range: %v", out.Buffers[1].Edit.Range)
	}

	// The excerpts follow their buffers.
	infoA, _ := m.Excerpt(e1)
	if infoA.BufferRange != (textbuf.Range{Start: 0, End: 49}) {
		t.Errorf("excerpt a: %v", infoA.BufferRange)
	}
	infoB, _ := m.Excerpt(e2)
	if infoB.BufferRange != (textbuf.Range{Start: 0, End: 28}) {
		t.Errorf("excerpt b: %v", infoB.BufferRange)
	}
}

func TestInsertAtExcerptBoundary(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	idB := src.add("bbbb")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})
	m.AppendExcerpt(ExcerptSpec{BufferID: idB, Range: textbuf.Range{Start: 0, End: 4}})

	// A boundary offset belongs to the following excerpt.
	if _, err := m.Insert(4, "X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src[idA].Text(); got != "aaaa" {
		t.Errorf("buffer a touched: %q", got)
	}
	if got := src[idB].Text(); got != "Xbbbb" {
		t.Errorf("buffer b: %q", got)
	}
	if got := m.Text(); got != "aaaaXbbbb" {
		t.Errorf("logical: %q", got)
	}

	// The document's total length appends to the last excerpt.
	if _, err := m.Insert(9, "!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Text(); got != "aaaaXbbbb!" {
		t.Errorf("after append: %q", got)
	}
}

func TestDeleteAcrossThreeExcerpts(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	idB := src.add("bbbb")
	idC := src.add("cccc")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})
	eb, _ := m.AppendExcerpt(ExcerptSpec{BufferID: idB, Range: textbuf.Range{Start: 0, End: 4}})
	m.AppendExcerpt(ExcerptSpec{BufferID: idC, Range: textbuf.Range{Start: 0, End: 4}})

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	if _, err := m.Delete(2, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Text(); got != "aacc" {
		t.Errorf("got %q", got)
	}
	if got := src[idB].Text(); got != "" {
		t.Errorf("buffer b: %q", got)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Range != (Range{Start: 2, End: 10}) || events[0].NewRange != (Range{Start: 2, End: 2}) {
		t.Errorf("event: %+v", events[0])
	}

	// The fully emptied excerpt stays in the arrangement at zero length.
	if m.ExcerptCount() != 3 {
		t.Errorf("excerpt count: %d", m.ExcerptCount())
	}
	info, err := m.Excerpt(eb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Len() != 0 {
		t.Errorf("middle excerpt length: %d", info.Len())
	}
}

func TestEditTwoExcerptsSameBuffer(t *testing.T) {
	src := mapSource{}
	idA := src.add("abcdefghi")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 3}})
	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 6, End: 9}})

	if got := m.Text(); got != "abcghi" {
		t.Fatalf("setup: %q", got)
	}

	out, err := m.Edit(Range{Start: 2, End: 4}, "Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := src[idA].Text(); got != "abZdefhi" {
		t.Errorf("buffer: %q", got)
	}
	if got := m.Text(); got != "abZhi" {
		t.Errorf("logical: %q", got)
	}
	if len(out.Buffers) != 2 {
		t.Fatalf("expected 2 buffer edits, got %d", len(out.Buffers))
	}
	if out.Buffers[0].Version == out.Buffers[1].Version {
		t.Error("same-buffer edits must commit as separate versions")
	}
}

func TestEditReadOnlyExcerptAtomic(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	idB := src.add("bbbb")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})
	m.AppendExcerpt(ExcerptSpec{BufferID: idB, Range: textbuf.Range{Start: 0, End: 4}, ReadOnly: true})

	var events int
	m.Subscribe(func(Event) { events++ })

	// The edit starts in a writable excerpt but reaches a read-only
	// one: nothing may be applied.
	if _, err := m.Edit(Range{Start: 2, End: 6}, "Z"); !errors.Is(err, ErrReadOnlyExcerpt) {
		t.Fatalf("got %v, want ErrReadOnlyExcerpt", err)
	}

	if got := src[idA].Text(); got != "aaaa" {
		t.Errorf("buffer a modified: %q", got)
	}
	if got := src[idB].Text(); got != "bbbb" {
		t.Errorf("buffer b modified: %q", got)
	}
	if events != 0 {
		t.Errorf("failed edit published %d events", events)
	}

	// Writes that stay inside the writable excerpt still work.
	if _, err := m.Edit(Range{Start: 0, End: 2}, "AA"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEditReadOnlyBuffer(t *testing.T) {
	src := mapSource{}
	idA := src.add("locked", textbuf.WithReadOnly())
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 6}})

	if _, err := m.Insert(0, "x"); !errors.Is(err, ErrReadOnlyExcerpt) {
		t.Errorf("got %v, want ErrReadOnlyExcerpt", err)
	}
}

func TestEditInvalidRange(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})

	tests := []struct {
		name string
		r    Range
	}{
		{"past end", Range{Start: 2, End: 9}},
		{"inverted", Range{Start: 3, End: 1}},
		{"negative", Range{Start: -1, End: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Edit(tt.r, "x"); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("got %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestEditNoOp(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})

	var events int
	m.Subscribe(func(Event) { events++ })

	out, err := m.Edit(Range{Start: 2, End: 2}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Version != 1 || len(out.Buffers) != 0 {
		t.Errorf("no-op outcome: %+v", out)
	}
	if events != 0 {
		t.Errorf("no-op published %d events", events)
	}
}

// A writer racing the routed edit on the same buffer is folded into its
// own event, delivered before the edit's event.
func TestExternalChangeDuringEditFoldsFirst(t *testing.T) {
	src := mapSource{}
	idA := src.add("aaaa")
	m := New(src)
	defer m.Close()

	m.AppendExcerpt(ExcerptSpec{BufferID: idA, Range: textbuf.Range{Start: 0, End: 4}})

	fired := false
	src[idA].Subscribe(func(textbuf.Change) {
		if !fired {
			fired = true
			src[idA].Insert(0, "zz")
		}
	})

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	out, err := m.Edit(Range{Start: 2, End: 4}, "XY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Text(); got != "zzaaXY" {
		t.Errorf("got %q", got)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Range != (Range{Start: 0, End: 4}) || events[0].NewRange != (Range{Start: 0, End: 6}) {
		t.Errorf("raced change event: %+v", events[0])
	}
	if events[1].Range != (Range{Start: 2, End: 4}) || events[1].NewRange != (Range{Start: 2, End: 4}) {
		t.Errorf("edit event: %+v", events[1])
	}
	if out.Version != events[1].Version {
		t.Errorf("outcome version %d, event version %d", out.Version, events[1].Version)
	}
}

func TestRollbackRestoresBuffer(t *testing.T) {
	src := mapSource{}
	idA := src.add("hello")
	b := &bufferBinding{id: idA, buf: src[idA]}

	_, change, err := b.buf.ApplyEdit(textbuf.NewEdit(textbuf.Range{Start: 0, End: 5}, "goodbye"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	undone := rollback([]appliedEdit{{binding: b, change: change}}, zap.NewNop())
	if len(undone) != 1 {
		t.Fatalf("expected 1 undone edit, got %d", len(undone))
	}
	if got := b.buf.Text(); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if undone[0].change.NewText != "hello" {
		t.Errorf("undo change: %+v", undone[0].change)
	}
}

func TestMapBufferError(t *testing.T) {
	other := errors.New("other")
	tests := []struct {
		in, want error
	}{
		{textbuf.ErrReadOnly, ErrReadOnlyExcerpt},
		{textbuf.ErrRangeInvalid, ErrInvalidRange},
		{textbuf.ErrOffsetOutOfRange, ErrInvalidRange},
		{other, other},
	}
	for _, tt := range tests {
		if got := mapBufferError(tt.in); !errors.Is(got, tt.want) {
			t.Errorf("mapBufferError(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
