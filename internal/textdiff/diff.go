package textdiff

import "strings"

// Options configures diff computation.
type Options struct {
	// IgnoreCase performs case-insensitive comparison.
	IgnoreCase bool

	// IgnoreWhitespace ignores leading/trailing whitespace on each line.
	IgnoreWhitespace bool

	// MaxLines limits the number of lines handed to the Myers algorithm.
	// Larger inputs fall back to a coarse prefix/suffix diff. Default is
	// 10000. Set to -1 to disable the limit.
	MaxLines int

	// MaxMemoryMB limits the estimated memory of the Myers trace. If
	// exceeded, the coarse diff is used. Default is 100MB. Set to -1 to
	// disable the limit.
	MaxMemoryMB int
}

// DefaultOptions returns the default diff options.
func DefaultOptions() Options {
	return Options{
		MaxLines:    10000,
		MaxMemoryMB: 100,
	}
}

func (o Options) maxLines() int {
	if o.MaxLines == 0 {
		return 10000
	}
	return o.MaxLines
}

func (o Options) maxMemoryMB() int {
	if o.MaxMemoryMB == 0 {
		return 100
	}
	return o.MaxMemoryMB
}

// Kind classifies a hunk.
type Kind uint8

const (
	// Modified means both the old and new side of the hunk are non-empty.
	Modified Kind = iota

	// Inserted means the hunk has no old side.
	Inserted

	// Deleted means the hunk has no new side.
	Deleted
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Deleted:
		return "deleted"
	default:
		return "modified"
	}
}

// Hunk is one contiguous changed region. Line numbers are 0-indexed;
// OldStart/OldLines address the old text, NewStart/NewLines the new text.
// A pure insertion has OldLines == 0 with OldStart marking the position the
// lines were inserted at, and symmetrically for deletions.
type Hunk struct {
	Kind     Kind
	OldStart uint32
	OldLines uint32
	NewStart uint32
	NewLines uint32
}

// OldEnd returns the exclusive end line on the old side.
func (h Hunk) OldEnd() uint32 { return h.OldStart + h.OldLines }

// NewEnd returns the exclusive end line on the new side.
func (h Hunk) NewEnd() uint32 { return h.NewStart + h.NewLines }

// LineDelta returns the change in line count caused by this hunk.
func (h Hunk) LineDelta() int { return int(h.NewLines) - int(h.OldLines) }

// Lines computes the line diff between two texts given as line slices.
// Returned hunks are ordered and non-overlapping on both sides.
func Lines(oldLines, newLines []string, opts Options) []Hunk {
	n, m := len(oldLines), len(newLines)

	if maxLines := opts.maxLines(); maxLines > 0 && (n > maxLines || m > maxLines) {
		return coarseDiff(oldLines, newLines, opts)
	}

	// The Myers trace keeps one V vector copy per edit-distance step:
	// worst case (n+m) copies of 2(n+m)+1 ints.
	if maxMem := opts.maxMemoryMB(); maxMem > 0 {
		maxD := int64(n + m)
		estimatedMB := maxD * (2*maxD + 1) * 8 / (1024 * 1024)
		if estimatedMB > int64(maxMem) {
			return coarseDiff(oldLines, newLines, opts)
		}
	}

	return foldOps(myersDiff(oldLines, newLines, opts))
}

// Strings computes the line diff between two texts.
func Strings(oldText, newText string, opts Options) []Hunk {
	return Lines(strings.Split(oldText, "\n"), strings.Split(newText, "\n"), opts)
}

// Window diffs old[oldFrom:oldTo] against new[newFrom:newTo] and returns
// hunks in whole-text coordinates. Bounds are clamped to the inputs. This
// is the building block for incremental recomputation: callers re-diff only
// the window around an edit and splice the result into their hunk set.
func Window(oldLines, newLines []string, oldFrom, oldTo, newFrom, newTo int, opts Options) []Hunk {
	oldFrom = clampLine(oldFrom, len(oldLines))
	oldTo = clampLine(oldTo, len(oldLines))
	newFrom = clampLine(newFrom, len(newLines))
	newTo = clampLine(newTo, len(newLines))
	if oldTo < oldFrom || newTo < newFrom {
		return nil
	}

	hunks := Lines(oldLines[oldFrom:oldTo], newLines[newFrom:newTo], opts)
	for i := range hunks {
		hunks[i].OldStart += uint32(oldFrom)
		hunks[i].NewStart += uint32(newFrom)
	}
	return hunks
}

func clampLine(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// Stat returns the total inserted and deleted line counts across hunks.
func Stat(hunks []Hunk) (added, removed uint32) {
	for _, h := range hunks {
		added += h.NewLines
		removed += h.OldLines
	}
	return added, removed
}

// linesEqual compares two lines respecting diff options.
func linesEqual(a, b string, opts Options) bool {
	if opts.IgnoreCase {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if opts.IgnoreWhitespace {
		a = strings.TrimSpace(a)
		b = strings.TrimSpace(b)
	}
	return a == b
}

// opKind is a single step of the edit script.
type opKind uint8

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type editOp struct {
	kind opKind
}

// foldOps walks the edit script with running cursors and merges every
// maximal run of non-equal steps into one classified hunk.
func foldOps(ops []editOp) []Hunk {
	var hunks []Hunk
	var cur *Hunk
	var oldPos, newPos uint32

	flush := func() {
		if cur == nil {
			return
		}
		switch {
		case cur.OldLines == 0:
			cur.Kind = Inserted
		case cur.NewLines == 0:
			cur.Kind = Deleted
		default:
			cur.Kind = Modified
		}
		hunks = append(hunks, *cur)
		cur = nil
	}

	for _, op := range ops {
		switch op.kind {
		case opEqual:
			flush()
			oldPos++
			newPos++
		case opDelete:
			if cur == nil {
				cur = &Hunk{OldStart: oldPos, NewStart: newPos}
			}
			cur.OldLines++
			oldPos++
		case opInsert:
			if cur == nil {
				cur = &Hunk{OldStart: oldPos, NewStart: newPos}
			}
			cur.NewLines++
			newPos++
		}
	}
	flush()

	return hunks
}

// myersDiff implements the Myers shortest-edit-script algorithm and returns
// the full step sequence covering both inputs.
func myersDiff(oldLines, newLines []string, opts Options) []editOp {
	n, m := len(oldLines), len(newLines)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		return repeatOp(opInsert, m)
	}
	if m == 0 {
		return repeatOp(opDelete, n)
	}

	maxD := n + m
	offset := maxD // V[-max..max] maps to slice[0..2*max]
	v := make([]int, 2*maxD+1)

	var trace [][]int

outer:
	for d := 0; d <= maxD; d++ {
		// Save the state from the previous iteration; backtracking
		// needs it to decide which diagonal each step came from.
		vCopy := make([]int, len(v))
		copy(vCopy, v)
		trace = append(trace, vCopy)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}

			y := x - k

			// Extend the diagonal through equal lines.
			for x < n && y < m && linesEqual(oldLines[x], newLines[y], opts) {
				x++
				y++
			}

			v[offset+k] = x

			if x >= n && y >= m {
				break outer
			}
		}
	}

	return backtrack(trace, n, m, offset)
}

func repeatOp(kind opKind, count int) []editOp {
	ops := make([]editOp, count)
	for i := range ops {
		ops[i] = editOp{kind: kind}
	}
	return ops
}

// backtrack reconstructs the edit script from the Myers trace.
func backtrack(trace [][]int, n, m, offset int) []editOp {
	if len(trace) == 0 {
		return nil
	}

	x, y := n, m
	var ops []editOp

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := v[offset+prevK]
		prevY := prevX - prevK

		// Walk back through the diagonal of equal lines.
		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, editOp{kind: opEqual})
		}

		if d > 0 {
			if x > prevX {
				x--
				ops = append(ops, editOp{kind: opDelete})
			} else if y > prevY {
				y--
				ops = append(ops, editOp{kind: opInsert})
			}
		}
	}

	// Built backwards; reverse into chronological order.
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}

// coarseDiff is the O(n+m) fallback for inputs too large for Myers: trim
// the common prefix and suffix, then report whatever remains as a single
// hunk. Coarse but never wrong, which matters more than minimality when a
// buffer has hundreds of thousands of lines.
func coarseDiff(oldLines, newLines []string, opts Options) []Hunk {
	n, m := len(oldLines), len(newLines)

	prefix := 0
	for prefix < n && prefix < m && linesEqual(oldLines[prefix], newLines[prefix], opts) {
		prefix++
	}

	suffix := 0
	for suffix < n-prefix && suffix < m-prefix &&
		linesEqual(oldLines[n-1-suffix], newLines[m-1-suffix], opts) {
		suffix++
	}

	oldCount := n - prefix - suffix
	newCount := m - prefix - suffix
	if oldCount == 0 && newCount == 0 {
		return nil
	}

	h := Hunk{
		OldStart: uint32(prefix),
		OldLines: uint32(oldCount),
		NewStart: uint32(prefix),
		NewLines: uint32(newCount),
	}
	switch {
	case oldCount == 0:
		h.Kind = Inserted
	case newCount == 0:
		h.Kind = Deleted
	default:
		h.Kind = Modified
	}
	return []Hunk{h}
}
