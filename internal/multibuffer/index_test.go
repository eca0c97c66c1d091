package multibuffer

import (
	"math/rand"
	"slices"
	"testing"
)

func testExcerpt(id ExcerptID, size ByteOffset, lines uint32) *excerpt {
	return &excerpt{id: id, start: 0, end: size, lines: lines}
}

func TestIndexAppend(t *testing.T) {
	x := newExcerptIndex()
	for i := 1; i <= 20; i++ {
		x = x.insert(x.count(), testExcerpt(ExcerptID(i), 10, 1))
	}

	if x.count() != 20 {
		t.Fatalf("count: got %d, want 20", x.count())
	}
	if x.bytes() != 200 {
		t.Errorf("bytes: got %d, want 200", x.bytes())
	}
	if x.newlines() != 20 {
		t.Errorf("newlines: got %d, want 20", x.newlines())
	}

	ord := 0
	x.root.each(func(e *excerpt, before exSummary) bool {
		if e.id != ExcerptID(ord+1) {
			t.Errorf("position %d: got %v", ord, e.id)
		}
		if before.bytes != ByteOffset(ord*10) || before.count != ord {
			t.Errorf("position %d: before = %+v", ord, before)
		}
		ord++
		return true
	})
	if ord != 20 {
		t.Errorf("visited %d excerpts, want 20", ord)
	}
}

func TestIndexInsertAtFront(t *testing.T) {
	x := newExcerptIndex()
	for i := 1; i <= 10; i++ {
		x = x.insert(0, testExcerpt(ExcerptID(i), 1, 0))
	}

	// Display order is reverse insertion order.
	want := ExcerptID(10)
	x.root.each(func(e *excerpt, _ exSummary) bool {
		if e.id != want {
			t.Errorf("got %v, want %v", e.id, want)
		}
		want--
		return true
	})
}

func TestIndexInsertMiddle(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 5, 0))
	x = x.insert(1, testExcerpt(2, 5, 0))
	x = x.insert(1, testExcerpt(3, 7, 2))

	e, before := x.root.entryAt(1)
	if e.id != 3 {
		t.Errorf("middle: got %v, want excerpt(3)", e.id)
	}
	if before.bytes != 5 || before.count != 1 {
		t.Errorf("before middle: %+v", before)
	}

	e, before = x.root.entryAt(2)
	if e.id != 2 || before.bytes != 12 || before.lines != 2 {
		t.Errorf("last: id=%v before=%+v", e.id, before)
	}
}

func TestIndexRemove(t *testing.T) {
	x := newExcerptIndex()
	for i := 1; i <= 5; i++ {
		x = x.insert(x.count(), testExcerpt(ExcerptID(i), 10, 1))
	}

	x2, e, before, ok := x.remove(3)
	if !ok || e.id != 3 {
		t.Fatalf("remove: ok=%v id=%v", ok, e.id)
	}
	if before.bytes != 20 || before.count != 2 {
		t.Errorf("before: %+v", before)
	}
	if x2.count() != 4 || x2.bytes() != 40 {
		t.Errorf("after remove: count=%d bytes=%d", x2.count(), x2.bytes())
	}
	if _, _, ok := x2.lookup(3); ok {
		t.Error("removed excerpt still resolvable")
	}

	// The index is persistent: the original is untouched.
	if x.count() != 5 {
		t.Errorf("original modified: count=%d", x.count())
	}

	if _, _, _, ok := x2.remove(3); ok {
		t.Error("double remove succeeded")
	}
}

func TestIndexMove(t *testing.T) {
	x := newExcerptIndex()
	for i := 1; i <= 5; i++ {
		x = x.insert(x.count(), testExcerpt(ExcerptID(i), ByteOffset(i), 0))
	}

	// 1 2 3 4 5 -> 5 2 3 4 1
	x2, ok := x.move(5, 0)
	if !ok {
		t.Fatal("move to front failed")
	}
	x2, ok = x2.move(1, 4)
	if !ok {
		t.Fatal("move to back failed")
	}

	var got []ExcerptID
	x2.root.each(func(e *excerpt, _ exSummary) bool {
		got = append(got, e.id)
		return true
	})
	if want := []ExcerptID{5, 2, 3, 4, 1}; !slices.Equal(got, want) {
		t.Errorf("order: got %v, want %v", got, want)
	}
	if x2.bytes() != 15 {
		t.Errorf("move changed total bytes: %d", x2.bytes())
	}

	ord, ok := x2.ordinalOf(3)
	if !ok || ord != 2 {
		t.Errorf("ordinalOf(3): got %d, %v", ord, ok)
	}
}

func TestIndexReplace(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 10, 1))
	x = x.insert(1, testExcerpt(2, 10, 1))

	e, _, _ := x.lookup(2)
	clone := *e
	clone.end = 25
	clone.lines = 3
	x2, ok := x.replace(&clone)
	if !ok {
		t.Fatal("replace failed")
	}

	if x2.bytes() != 35 || x2.newlines() != 4 {
		t.Errorf("after replace: bytes=%d lines=%d", x2.bytes(), x2.newlines())
	}
	if x.bytes() != 20 {
		t.Errorf("original modified: bytes=%d", x.bytes())
	}
	if ord, ok := x2.ordinalOf(2); !ok || ord != 1 {
		t.Errorf("ordinal after replace: %d, %v", ord, ok)
	}
}

func TestIndexResolveOffset(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 50, 0))
	x = x.insert(1, testExcerpt(2, 30, 0))

	tests := []struct {
		name  string
		off   ByteOffset
		id    ExcerptID
		local ByteOffset
	}{
		{"start", 0, 1, 0},
		{"inside first", 49, 1, 49},
		{"boundary belongs to second", 50, 2, 0},
		{"inside second", 55, 2, 5},
		{"total length ends last", 80, 2, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, local, _, ok := x.resolveOffset(tt.off)
			if !ok {
				t.Fatal("not resolved")
			}
			if e.id != tt.id || local != tt.local {
				t.Errorf("got (%v, %d), want (%v, %d)", e.id, local, tt.id, tt.local)
			}
		})
	}
}

func TestIndexResolveOffsetZeroLength(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 10, 0))
	x = x.insert(1, testExcerpt(2, 0, 0))
	x = x.insert(2, testExcerpt(3, 10, 0))

	// A zero-length excerpt holds no offsets; the boundary lands in the
	// excerpt after it.
	e, local, _, ok := x.resolveOffset(10)
	if !ok || e.id != 3 || local != 0 {
		t.Errorf("got (%v, %d, %v), want (excerpt(3), 0)", e.id, local, ok)
	}

	// Unless it ends the arrangement.
	x2 := newExcerptIndex()
	x2 = x2.insert(0, testExcerpt(4, 10, 0))
	x2 = x2.insert(1, testExcerpt(5, 0, 0))
	e, local, _, ok = x2.resolveOffset(10)
	if !ok || e.id != 5 || local != 0 {
		t.Errorf("trailing: got (%v, %d, %v), want (excerpt(5), 0)", e.id, local, ok)
	}
}

func TestIndexResolveOffsetEmpty(t *testing.T) {
	x := newExcerptIndex()
	if _, _, _, ok := x.resolveOffset(0); ok {
		t.Error("empty arrangement resolved an offset")
	}
}

func TestIndexSeekLine(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 10, 2))
	x = x.insert(1, testExcerpt(2, 10, 0))
	x = x.insert(2, testExcerpt(3, 10, 3))

	e, before := x.root.seekLine(2)
	if e.id != 1 || before.lines != 0 {
		t.Errorf("line 2: got %v, before %d lines", e.id, before.lines)
	}
	e, before = x.root.seekLine(3)
	if e.id != 3 || before.lines != 2 {
		t.Errorf("line 3: got %v, before %d lines", e.id, before.lines)
	}
	e, _ = x.root.seekLine(5)
	if e.id != 3 {
		t.Errorf("line 5: got %v", e.id)
	}
}

func TestIndexEachInRange(t *testing.T) {
	x := newExcerptIndex()
	x = x.insert(0, testExcerpt(1, 10, 0))
	x = x.insert(1, testExcerpt(2, 10, 0))
	x = x.insert(2, testExcerpt(3, 0, 0))
	x = x.insert(3, testExcerpt(4, 10, 0))

	collect := func(start, end ByteOffset) []ExcerptID {
		var ids []ExcerptID
		x.eachInRange(start, end, func(e *excerpt, _ exSummary) bool {
			ids = append(ids, e.id)
			return true
		})
		return ids
	}

	tests := []struct {
		name       string
		start, end ByteOffset
		want       []ExcerptID
	}{
		{"all", 0, 30, []ExcerptID{1, 2, 3, 4}},
		{"first only", 0, 10, []ExcerptID{1}},
		{"straddle", 5, 15, []ExcerptID{1, 2}},
		{"zero length at position", 20, 21, []ExcerptID{3, 4}},
		{"past zero length", 21, 30, []ExcerptID{4}},
		{"empty range", 5, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collect(tt.start, tt.end); !slices.Equal(got, tt.want) {
				t.Errorf("[%d, %d): got %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// Five hundred random inserts, removes, and moves checked against a
// plain slice after every step.
func TestIndexRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := newExcerptIndex()
	var model []*excerpt
	var nextID ExcerptID

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(model) == 0:
			nextID++
			e := testExcerpt(nextID, ByteOffset(rng.Intn(40)), uint32(rng.Intn(4)))
			at := rng.Intn(len(model) + 1)
			x = x.insert(at, e)
			model = slices.Insert(model, at, e)

		case op == 1:
			at := rng.Intn(len(model))
			id := model[at].id
			x2, e, _, ok := x.remove(id)
			if !ok || e.id != id {
				t.Fatalf("step %d: remove %v failed", step, id)
			}
			x = x2
			model = slices.Delete(model, at, at+1)

		default:
			from := rng.Intn(len(model))
			to := rng.Intn(len(model))
			id := model[from].id
			x2, ok := x.move(id, to)
			if !ok {
				t.Fatalf("step %d: move %v failed", step, id)
			}
			x = x2
			e := model[from]
			model = slices.Delete(model, from, from+1)
			model = slices.Insert(model, to, e)
		}

		if x.count() != len(model) {
			t.Fatalf("step %d: count %d, want %d", step, x.count(), len(model))
		}
		var sum exSummary
		i := 0
		x.root.each(func(e *excerpt, before exSummary) bool {
			if e.id != model[i].id {
				t.Fatalf("step %d: position %d holds %v, want %v", step, i, e.id, model[i].id)
			}
			if before != sum {
				t.Fatalf("step %d: position %d summary %+v, want %+v", step, i, before, sum)
			}
			sum = sum.add(e.summary())
			i++
			return true
		})
		if x.bytes() != sum.bytes || x.newlines() != sum.lines {
			t.Fatalf("step %d: totals %d/%d, want %d/%d",
				step, x.bytes(), x.newlines(), sum.bytes, sum.lines)
		}
	}
}
