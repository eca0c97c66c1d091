package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dshills/weave/internal/registry"
	"github.com/dshills/weave/internal/script"
	"github.com/dshills/weave/internal/textbuf"
)

func cmdScript(args []string) int {
	fs := flag.NewFlagSet("script", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	dryRun := fs.Bool("dry-run", false, "print the edited view instead of writing files")
	if code := parseArgs(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: script needs a Lua file and at least one FILE[:RANGE] argument")
		return 2
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return fail(err)
	}

	specs, err := parseFileSpecs(fs.Args()[1:])
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

	before := make(map[registry.ID]textbuf.Version)
	for _, info := range s.reg.List() {
		before[info.ID] = info.Version
	}

	runner := script.New(s.view, script.WithLogger(s.log))
	if err := runner.RunFile(fs.Arg(0)); err != nil {
		return fail(err)
	}

	if *dryRun {
		opts := renderOptions{numbers: cfg.Show.LineNumbers, headers: cfg.Show.Headers}
		if err := renderView(os.Stdout, s, opts); err != nil {
			return fail(err)
		}
		return 0
	}

	for _, info := range s.reg.List() {
		if info.Path == "" || info.Version == before[info.ID] {
			continue
		}
		if err := s.reg.Save(info.ID); err != nil {
			return fail(fmt.Errorf("save %s: %w", info.Path, err))
		}
		fmt.Printf("wrote %s\n", info.Path)
	}
	return 0
}
