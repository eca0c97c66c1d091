package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
)

func cmdGrep(args []string) int {
	fs := flag.NewFlagSet("grep", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	ctx := fs.Int("context", -1, "lines of context around each match (default from config)")
	if code := parseArgs(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: grep needs a pattern and at least one file")
		return 2
	}

	re, err := regexp.Compile(fs.Arg(0))
	if err != nil {
		return fail(fmt.Errorf("bad pattern: %w", err))
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return fail(err)
	}
	if *ctx < 0 {
		*ctx = cfg.Show.Context
	}

	s, err := newSession(cfg)
	if err != nil {
		return fail(err)
	}
	defer s.close()

	var specs []fileSpec
	for _, path := range fs.Args()[1:] {
		windows, err := s.matchWindows(path, re, *ctx)
		if err != nil {
			return fail(err)
		}
		for _, w := range windows {
			specs = append(specs, fileSpec{path: path, startLine: w[0], endLine: w[1]})
		}
	}
	if len(specs) == 0 {
		return 1
	}

	if err := s.assemble(specs); err != nil {
		return fail(err)
	}
	opts := renderOptions{numbers: cfg.Show.LineNumbers, headers: cfg.Show.Headers}
	if err := renderView(os.Stdout, s, opts); err != nil {
		return fail(err)
	}
	return 0
}

// matchWindows opens path and returns 1-based line windows of ctx lines
// around every line matching re. Overlapping and adjacent windows fuse
// into one so the view never repeats a line.
func (s *session) matchWindows(path string, re *regexp.Regexp, ctx int) ([][2]int, error) {
	id, err := s.reg.Open(path)
	if err != nil {
		return nil, err
	}
	buf, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}

	text := buf.Text()
	lines := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		// No phantom line after the final newline.
		lines = lines[:len(lines)-1]
	}
	var windows [][2]int
	for i, line := range lines {
		if !re.MatchString(strings.TrimSuffix(line, "\r")) {
			continue
		}
		start := i + 1 - ctx
		if start < 1 {
			start = 1
		}
		end := i + 1 + ctx
		if n := len(windows); n > 0 && start <= windows[n-1][1]+1 {
			if end > windows[n-1][1] {
				windows[n-1][1] = end
			}
			continue
		}
		windows = append(windows, [2]int{start, end})
	}
	return windows, nil
}
