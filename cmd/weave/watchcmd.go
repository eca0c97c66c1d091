package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/dshills/weave/internal/watch"
)

func cmdWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	if code := parseArgs(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: watch needs at least one FILE[:RANGE] argument")
		return 2
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		return fail(err)
	}

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

	opts := renderOptions{numbers: cfg.Show.LineNumbers, headers: cfg.Show.Headers}

	// Reload callbacks arrive on watcher goroutines; the mutex keeps
	// redraws from interleaving on stdout.
	var mu sync.Mutex
	redraw := func() {
		mu.Lock()
		defer mu.Unlock()
		fmt.Print("\x1b[H\x1b[2J")
		if err := renderView(os.Stdout, s, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	w, err := watch.New(s.reg,
		watch.WithLogger(s.log),
		watch.WithDebounce(cfg.Watch.Debounce.Std()),
		watch.WithOnReload(func(ev watch.ReloadEvent) {
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "Error: reload %s: %v\n", ev.Path, ev.Err)
				return
			}
			if ev.Changed {
				redraw()
			}
		}),
	)
	if err != nil {
		return fail(err)
	}
	defer w.Close()

	for _, info := range s.reg.List() {
		if info.Path == "" {
			continue
		}
		if err := w.Watch(info.ID); err != nil {
			return fail(fmt.Errorf("watch %s: %w", info.Path, err))
		}
	}

	redraw()
	s.log.Info("watching", zap.Strings("paths", w.Paths()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return 0
}
