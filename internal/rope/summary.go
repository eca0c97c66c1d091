package rope

// ByteOffset is an absolute byte position within a rope.
type ByteOffset = int64

// Point is a line/column position. Both fields are 0-indexed and Column
// is measured in bytes from the start of the line.
type Point struct {
	Line   uint32
	Column uint32
}

// Compare returns -1 if p < other, 0 if equal, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line != other.Line {
		if p.Line < other.Line {
			return -1
		}
		return 1
	}
	if p.Column != other.Column {
		if p.Column < other.Column {
			return -1
		}
		return 1
	}
	return 0
}

// Summary holds aggregated metrics for a span of text. It forms a monoid
// under Add, which is what lets the tree answer offset and line queries
// from internal nodes without touching the text.
type Summary struct {
	// Bytes is the UTF-8 byte count.
	Bytes ByteOffset

	// Lines is the number of newline characters.
	Lines uint32

	// FirstLine is the byte length of the first line (up to the first
	// newline, or the whole span if there is none).
	FirstLine uint32

	// LastLine is the byte length of the last line (after the final
	// newline; equal to FirstLine when the span has no newline).
	LastLine uint32
}

// Add combines two adjacent summaries.
func (s Summary) Add(other Summary) Summary {
	if s.Bytes == 0 {
		return other
	}
	if other.Bytes == 0 {
		return s
	}

	out := Summary{
		Bytes: s.Bytes + other.Bytes,
		Lines: s.Lines + other.Lines,
	}

	if s.Lines == 0 {
		out.FirstLine = s.FirstLine + other.FirstLine
	} else {
		out.FirstLine = s.FirstLine
	}
	if other.Lines == 0 {
		out.LastLine = s.LastLine + other.LastLine
	} else {
		out.LastLine = other.LastLine
	}

	return out
}

// IsZero reports whether this is the empty-span summary.
func (s Summary) IsZero() bool {
	return s.Bytes == 0
}

// Compute calculates the summary for a string.
func Compute(s string) Summary {
	var sum Summary
	sum.Bytes = ByteOffset(len(s))

	var lineLen uint32
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			sum.Lines++
			if sum.Lines == 1 {
				sum.FirstLine = lineLen
			}
			lineLen = 0
		} else {
			lineLen++
		}
	}

	sum.LastLine = lineLen
	if sum.Lines == 0 {
		sum.FirstLine = lineLen
	}
	return sum
}

// nthNewline returns the byte index of the nth newline (1-indexed) in s,
// or -1 if s contains fewer than n newlines.
func nthNewline(s string, n uint32) int {
	if n == 0 {
		return -1
	}
	var seen uint32
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			seen++
			if seen == n {
				return i
			}
		}
	}
	return -1
}
