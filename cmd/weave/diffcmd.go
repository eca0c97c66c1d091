package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/weave/internal/textdiff"
)

func cmdDiff(args []string) int {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	baseDir := fs.String("base-dir", "", "directory of baseline copies to diff against")
	ctx := fs.Int("context", 3, "context lines per hunk")
	if code := parseArgs(fs, args); code >= 0 {
		return code
	}
	if *baseDir == "" {
		fmt.Fprintln(os.Stderr, "Error: diff needs -base-dir")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: diff needs at least one file")
		return 2
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return fail(err)
	}

	s, err := newSession(cfg)
	if err != nil {
		return fail(err)
	}
	defer s.close()

	opts := textdiff.Options{
		IgnoreWhitespace: cfg.Engine.DiffIgnoreWhitespace,
		MaxLines:         cfg.Engine.DiffMaxLines,
	}
	for _, path := range fs.Args() {
		id, err := s.reg.Open(path)
		if err != nil {
			return fail(err)
		}
		buf, err := s.reg.Get(id)
		if err != nil {
			return fail(err)
		}

		base := filepath.Join(*baseDir, filepath.Base(path))
		data, err := os.ReadFile(base)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Error: no base for %s under %s\n", path, *baseDir)
				continue
			}
			return fail(fmt.Errorf("read base %s: %w", base, err))
		}

		oldLines := strings.Split(string(data), "\n")
		newLines := strings.Split(buf.Text(), "\n")
		hunks := textdiff.Lines(oldLines, newLines, opts)
		fmt.Print(textdiff.Unified(oldLines, newLines, hunks, base, path, *ctx))
	}
	return 0
}
