package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load missing file = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"

[engine]
diff_sync_lines = 64
diff_ignore_whitespace = true

[watch]
debounce = "250ms"

[show]
context = 5
line_numbers = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Engine.DiffSyncLines != 64 {
		t.Errorf("Engine.DiffSyncLines = %d, want 64", cfg.Engine.DiffSyncLines)
	}
	if !cfg.Engine.DiffIgnoreWhitespace {
		t.Error("Engine.DiffIgnoreWhitespace = false, want true")
	}
	if got := cfg.Watch.Debounce.Std(); got != 250*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 250ms", got)
	}
	if cfg.Show.Context != 5 {
		t.Errorf("Show.Context = %d, want 5", cfg.Show.Context)
	}
	if cfg.Show.LineNumbers {
		t.Error("Show.LineNumbers = true, want false")
	}

	// Settings absent from the file keep their defaults.
	if cfg.Engine.DiffMaxLines != Default().Engine.DiffMaxLines {
		t.Errorf("Engine.DiffMaxLines = %d, want default %d",
			cfg.Engine.DiffMaxLines, Default().Engine.DiffMaxLines)
	}
	if !cfg.Show.Headers {
		t.Error("Show.Headers = false, want default true")
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[log]\nlevel = 123\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load of invalid config succeeded")
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
	}
	if pe.Line <= 0 {
		t.Errorf("ParseError.Line = %d, want > 0", pe.Line)
	}
	if pe.Message == "" {
		t.Error("ParseError.Message is empty")
	}
	if errors.Unwrap(pe) == nil {
		t.Error("ParseError.Unwrap() = nil")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[watch]\ndebounce = \"soon\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load with invalid duration succeeded")
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1.5s")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Std() != 1500*time.Millisecond {
		t.Errorf("Std() = %v, want 1.5s", d.Std())
	}

	out, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(out) != "1.5s" {
		t.Errorf("MarshalText = %q, want %q", out, "1.5s")
	}

	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText of invalid duration succeeded")
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "weave", "config.toml")
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
