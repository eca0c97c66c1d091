package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func cmdShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	numbers := fs.Bool("numbers", true, "prefix lines with buffer line numbers")
	headers := fs.Bool("headers", true, "print a locator header before each excerpt")
	baseDir := fs.String("base-dir", "", "directory of baseline copies to diff against")
	if code := parseArgs(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: show needs at least one FILE[:RANGE] argument")
		return 2
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return fail(err)
	}

	opts := renderOptions{numbers: cfg.Show.LineNumbers, headers: cfg.Show.Headers}
	// Flags beat config, but only when actually given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "numbers":
			opts.numbers = *numbers
		case "headers":
			opts.headers = *headers
		}
	})

	specs, err := parseFileSpecs(fs.Args())
	if err != nil {
		return fail(err)
	}

	s, err := newSession(cfg)
	if err != nil {
		return fail(err)
	}
	defer s.close()

	if err := s.assemble(specs); err != nil {
		return fail(err)
	}

	if *baseDir != "" {
		opts.gutter = true
		if err := s.loadDiffBases(*baseDir); err != nil {
			return fail(err)
		}
		s.awaitDiffs()
	}

	if err := renderView(os.Stdout, s, opts); err != nil {
		return fail(err)
	}
	return 0
}

// loadDiffBases installs dir/<name> as the diff base for each open file
// buffer. Files with no counterpart under dir are shown without a diff.
func (s *session) loadDiffBases(dir string) error {
	for _, info := range s.reg.List() {
		if info.Path == "" {
			continue
		}
		base := filepath.Join(dir, filepath.Base(info.Path))
		data, err := os.ReadFile(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read base %s: %w", base, err)
		}
		if err := s.view.SetDiffBase(info.ID, string(data)); err != nil {
			return fmt.Errorf("diff base for %s: %w", info.Path, err)
		}
	}
	return nil
}

// awaitDiffs blocks until no excerpt reports a pending diff, so the
// gutter is complete when the view is printed. Bounded in case a diff
// never settles.
func (s *session) awaitDiffs() {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.view.Snapshot()
		pending := false
		for _, info := range snap.Excerpts() {
			if p, err := snap.DiffPending(info.ID); err == nil && p {
				pending = true
				break
			}
		}
		if !pending {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
