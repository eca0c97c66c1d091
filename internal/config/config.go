// Package config loads weave's TOML configuration.
//
// Configuration is a single file of engine tunables and CLI defaults. A
// missing file is not an error; Load returns the defaults. A file that
// exists but does not parse is an error, reported with its position.
package config

import (
	"fmt"
	"time"
)

// Config is the full configuration tree.
type Config struct {
	Log    Log    `toml:"log"`
	Engine Engine `toml:"engine"`
	Watch  Watch  `toml:"watch"`
	Show   Show   `toml:"show"`
}

// Log configures logging output.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// File is the log destination. Empty logs to stderr.
	File string `toml:"file"`
}

// Engine configures buffer and diff behavior.
type Engine struct {
	// HistoryLimit is the number of committed changes each buffer
	// retains for anchor resolution. Zero keeps the library default.
	HistoryLimit int `toml:"history_limit"`

	// DiffSyncLines is the combined line count above which diff overlay
	// recomputation moves to a background goroutine.
	DiffSyncLines int `toml:"diff_sync_lines"`

	// DiffMaxLines caps the exact diff; larger inputs fall back to a
	// coarse structural diff.
	DiffMaxLines int `toml:"diff_max_lines"`

	// DiffIgnoreWhitespace compares lines with whitespace collapsed.
	DiffIgnoreWhitespace bool `toml:"diff_ignore_whitespace"`
}

// Watch configures file watching.
type Watch struct {
	// Debounce is the delay between the last file event and the reload,
	// as a duration string such as "100ms".
	Debounce Duration `toml:"debounce"`
}

// Show configures view rendering.
type Show struct {
	// Context is the number of context lines around grep matches.
	Context int `toml:"context"`

	// LineNumbers prefixes each rendered line with its buffer line.
	LineNumbers bool `toml:"line_numbers"`

	// Headers prints a locator line above each excerpt.
	Headers bool `toml:"headers"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Engine: Engine{
			DiffSyncLines: 2048,
			DiffMaxLines:  10000,
		},
		Watch: Watch{
			Debounce: Duration(100 * time.Millisecond),
		},
		Show: Show{
			Context:     2,
			LineNumbers: true,
			Headers:     true,
		},
	}
}

// Duration is a time.Duration that unmarshals from TOML strings like
// "250ms" or "2s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
