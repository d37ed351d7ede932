package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvConfig, EnvMaxCallDepth, EnvColor, EnvNoColor, EnvDebug, EnvVerbose, EnvParallel} {
		if old, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, old) })
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxCallDepth != DefaultMaxCallDepth || cfg.Color != ColorAuto || cfg.Debounce() != DefaultWatchDebounce {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Parallel <= 0 || cfg.Source != "" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoadFiles(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "microkt.yaml", "max_call_depth: 500\ncolor: never\nverbose: true\nparallel: 2\nwatch_debounce: 250ms\n"},
		{"json", "microkt.json", `{"max_call_depth": 500, "color": "never", "verbose": true, "parallel": 2, "watch_debounce": 250}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.MaxCallDepth != 500 || cfg.Color != ColorNever || !cfg.Verbose || cfg.Parallel != 2 {
				t.Errorf("Unexpected config %+v", cfg)
			}
			if cfg.Debounce() != 250*time.Millisecond {
				t.Errorf("Expected 250ms debounce, got %s", cfg.Debounce())
			}
			if cfg.Source != path {
				t.Errorf("Expected source %s, got %s", path, cfg.Source)
			}
		})
	}
}

func TestWorkingDirectoryLookup(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile("microkt.yml", []byte("max_call_depth: 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxCallDepth != 42 || cfg.Source != filepath.Join(".", "microkt.yml") {
		t.Errorf("Expected microkt.yml to be picked up, got %+v", cfg)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "microkt.yaml", "max_call_depth: 500\ncolor: always\n")

	t.Setenv(EnvMaxCallDepth, "77")
	t.Setenv(EnvNoColor, "1")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvParallel, "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxCallDepth != 77 || cfg.Color != ColorNever || !cfg.Debug || cfg.Parallel != 3 {
		t.Errorf("Expected environment to win over the file, got %+v", cfg)
	}

	t.Setenv(EnvConfig, path)
	if cfg, err := Load(""); err != nil || cfg.Source != path {
		t.Errorf("Expected %s to name the config file, got %+v, %v", EnvConfig, cfg, err)
	}
}

func TestFlagsOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "microkt.yaml", "max_call_depth: 500\nverbose: true\n")

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"--config", path, "--max-depth", "9", "--color", "always"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := flags.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxCallDepth != 9 || cfg.Color != ColorAlways {
		t.Errorf("Expected flags to win, got %+v", cfg)
	}
	if !cfg.Verbose {
		t.Error("Unset flags must not override the file")
	}
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		file    string
		content string
		message string
	}{
		{"depth", "a.yaml", "max_call_depth: 0\n", "max_call_depth"},
		{"color", "b.yaml", "color: rainbow\n", "color"},
		{"duration", "c.yaml", "watch_debounce: soon\n", "invalid duration"},
		{"syntax", "d.json", "{", "failed to parse"},
		{"version", "e.yaml", "language_version: \"^9.0\"\n", "does not satisfy"},
		{"constraint", "f.yaml", "language_version: \"not a version\"\n", "invalid language_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing %q, got %v", tt.message, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing explicit config file")
	}
}

func TestCheckLanguageVersion(t *testing.T) {
	for _, c := range []string{"", "^1.0", ">= 1.1.0", "1.x"} {
		if err := CheckLanguageVersion(c); err != nil {
			t.Errorf("Expected %q to accept the current version, got %v", c, err)
		}
	}
	if err := CheckLanguageVersion("< 1.0"); err == nil {
		t.Error("Expected < 1.0 to reject the current version")
	}
}

func TestUseColor(t *testing.T) {
	tests := []struct {
		color    string
		terminal bool
		expected bool
	}{
		{ColorAuto, true, true},
		{ColorAuto, false, false},
		{ColorAlways, false, true},
		{ColorNever, true, false},
	}

	for _, tt := range tests {
		cfg := &Config{Color: tt.color}
		if got := cfg.UseColor(tt.terminal); got != tt.expected {
			t.Errorf("Color %s on terminal=%v: expected %v, got %v", tt.color, tt.terminal, tt.expected, got)
		}
	}
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir: it changes the
// working directory and restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
