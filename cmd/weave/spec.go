package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/weave/internal/multibuffer"
	"github.com/dshills/weave/internal/textbuf"
)

// fileSpec is one file argument with an optional 1-based inclusive line
// range. startLine 0 means the whole file.
type fileSpec struct {
	path      string
	startLine int
	endLine   int
}

// parseFileSpec splits "path:40-80" style arguments. A suffix that is
// not a line range stays part of the path, so files with colons in
// their names still open.
func parseFileSpec(arg string) (fileSpec, error) {
	spec := fileSpec{path: arg}

	i := strings.LastIndexByte(arg, ':')
	if i <= 0 || i == len(arg)-1 {
		return spec, nil
	}

	start, end, ok := parseLineRange(arg[i+1:])
	if !ok {
		return spec, nil
	}
	if start < 1 || end < start {
		return spec, fmt.Errorf("invalid line range %q in %q", arg[i+1:], arg)
	}

	spec.path = arg[:i]
	spec.startLine = start
	spec.endLine = end
	return spec, nil
}

func parseFileSpecs(args []string) ([]fileSpec, error) {
	specs := make([]fileSpec, 0, len(args))
	for _, arg := range args {
		spec, err := parseFileSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseLineRange(s string) (start, end int, ok bool) {
	dash := strings.IndexByte(s, '-')
	if dash < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		return n, n, true
	}

	a, err1 := strconv.Atoi(s[:dash])
	b, err2 := strconv.Atoi(s[dash+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// assemble opens each spec's file and appends the requested lines as an
// excerpt, in argument order. Ranges include the final line's newline,
// so adjacent excerpts never glue two lines together.
func (s *session) assemble(specs []fileSpec) error {
	for _, spec := range specs {
		id, err := s.reg.Open(spec.path)
		if err != nil {
			return err
		}
		buf, err := s.reg.Get(id)
		if err != nil {
			return err
		}

		r := textbuf.Range{Start: 0, End: buf.Len()}
		if spec.startLine > 0 {
			lineCount := int(buf.LineCount())
			if spec.startLine > lineCount {
				return fmt.Errorf("%s: line %d is beyond the end of the file (%d lines)",
					spec.path, spec.startLine, lineCount)
			}
			end := spec.endLine
			if end > lineCount {
				end = lineCount
			}
			r.Start = buf.LineStartOffset(uint32(spec.startLine - 1))
			r.End = buf.LineStartOffset(uint32(end))
		}

		if _, err := s.view.AppendExcerpt(multibuffer.ExcerptSpec{
			BufferID: id,
			Range:    r,
		}); err != nil {
			return fmt.Errorf("%s: %w", spec.path, err)
		}
	}
	return nil
}
