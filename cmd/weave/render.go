package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/weave/internal/multibuffer"
	"github.com/dshills/weave/internal/textdiff"
)

type renderOptions struct {
	numbers bool
	headers bool
	gutter  bool
}

// renderView writes the composed view, one block per excerpt: a locator
// header, then the excerpt's lines with their buffer line numbers and a
// diff gutter when a base is set.
//
//	--- main.go:10-12 ---
//	~  10| changed line
//	   11| unchanged line
//	+  12| new line
func renderView(w io.Writer, s *session, opts renderOptions) error {
	snap := s.view.Snapshot()
	for _, info := range snap.Excerpts() {
		if err := renderExcerpt(w, s, snap, info, opts); err != nil {
			return err
		}
	}
	return nil
}

func renderExcerpt(w io.Writer, s *session, snap *multibuffer.Snapshot, info multibuffer.ExcerptInfo, opts renderOptions) error {
	startLine, endLine := excerptLines(s, info)

	if opts.headers {
		name := "?"
		if bi, ok := s.reg.Info(info.BufferID); ok {
			name = bi.Name
		}
		if _, err := fmt.Fprintf(w, "--- %s:%d-%d ---\n", name, startLine, endLine); err != nil {
			return err
		}
	}

	text := snap.TextRange(info.LogicalRange.Start, info.LogicalRange.End)
	if text == "" {
		return nil
	}

	var hunks []multibuffer.DiffHunk
	if opts.gutter {
		hunks, _ = snap.DiffHunks(info.ID)
	}

	lines := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}

	offset := info.LogicalRange.Start
	for i, line := range lines {
		// The line's logical span includes its newline.
		span := multibuffer.Range{Start: offset, End: offset + int64(len(line)) + 1}
		if span.End > info.LogicalRange.End {
			span.End = info.LogicalRange.End
		}
		offset = span.End

		var b strings.Builder
		if opts.gutter {
			b.WriteByte(gutterMark(hunks, span, i == len(lines)-1))
			b.WriteByte(' ')
		}
		if opts.numbers {
			fmt.Fprintf(&b, "%4d| ", startLine+i)
		}
		b.WriteString(strings.TrimSuffix(line, "\r"))

		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// excerptLines returns the 1-based first and last buffer lines the
// excerpt covers.
func excerptLines(s *session, info multibuffer.ExcerptInfo) (first, last int) {
	buf, err := s.reg.Get(info.BufferID)
	if err != nil {
		return 1, 1
	}

	first = int(buf.OffsetToPoint(info.BufferRange.Start).Line) + 1
	last = first
	if info.BufferRange.End > info.BufferRange.Start {
		last = int(buf.OffsetToPoint(info.BufferRange.End-1).Line) + 1
	}
	return first, last
}

// gutterMark picks the diff marker for one line: '-' for a deletion
// point at the line's start, '~' for modified, '+' for inserted, space
// for untouched. The first hunk touching the line wins. A deletion at
// the very end of the text lands on the last line.
func gutterMark(hunks []multibuffer.DiffHunk, span multibuffer.Range, last bool) byte {
	for _, h := range hunks {
		if h.Kind == textdiff.Deleted {
			if h.Logical.Start >= span.Start &&
				(h.Logical.Start < span.End || (last && h.Logical.Start == span.End)) {
				return '-'
			}
			continue
		}
		if h.Logical.Start < span.End && h.Logical.End > span.Start {
			if h.Kind == textdiff.Inserted {
				return '+'
			}
			return '~'
		}
	}
	return ' '
}
