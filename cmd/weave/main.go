// Package main is the entry point for the weave CLI, a tool that
// assembles excerpts of several files into one logical view for
// display, searching, scripted editing, and live watching.
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "show":
		return cmdShow(args[1:])
	case "grep":
		return cmdGrep(args[1:])
	case "diff":
		return cmdDiff(args[1:])
	case "script":
		return cmdScript(args[1:])
	case "watch":
		return cmdWatch(args[1:])
	case "version", "--version", "-version", "-v":
		fmt.Printf("weave %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	case "help", "--help", "-help", "-h":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "weave - compose excerpts of many files into one view\n\n")
	fmt.Fprintf(os.Stderr, "Usage: weave <command> [options] [arguments]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  show    Print a composed view of file excerpts\n")
	fmt.Fprintf(os.Stderr, "  grep    Search files and show matches with context\n")
	fmt.Fprintf(os.Stderr, "  diff    Print unified diffs against baseline copies\n")
	fmt.Fprintf(os.Stderr, "  script  Run a Lua edit script over a composed view\n")
	fmt.Fprintf(os.Stderr, "  watch   Re-render a composed view as files change\n")
	fmt.Fprintf(os.Stderr, "  version Show version information\n")
	fmt.Fprintf(os.Stderr, "  help    Show this message\n\n")
	fmt.Fprintf(os.Stderr, "File arguments accept a 1-based line range suffix:\n")
	fmt.Fprintf(os.Stderr, "  main.go          the whole file\n")
	fmt.Fprintf(os.Stderr, "  main.go:40       line 40 only\n")
	fmt.Fprintf(os.Stderr, "  main.go:40-80    lines 40 through 80\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  weave show main.go:1-20 util.go:5-30\n")
	fmt.Fprintf(os.Stderr, "  weave show -base-dir /old/src main.go\n")
	fmt.Fprintf(os.Stderr, "  weave grep 'func New' *.go\n")
	fmt.Fprintf(os.Stderr, "  weave diff -base-dir /old/src main.go\n")
	fmt.Fprintf(os.Stderr, "  weave script rename.lua pkg/*.go\n")
	fmt.Fprintf(os.Stderr, "  weave watch main.go:1-40\n\n")
	fmt.Fprintf(os.Stderr, "Run 'weave <command> -h' for command options.\n")
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
