// Package config loads microkt settings from defaults, an optional config
// file, the environment and command-line flags, in that order.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/gaultier/microkt/internal/cli"
	"github.com/gaultier/microkt/internal/interpreter"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Defaults
const (
	DefaultMaxCallDepth  = interpreter.DefaultMaxCallDepth
	DefaultWatchDebounce = 100 * time.Millisecond
)

// Environment variables
const (
	EnvConfig       = "MICROKT_CONFIG"
	EnvMaxCallDepth = "MICROKT_MAX_CALL_DEPTH"
	EnvColor        = "MICROKT_COLOR"
	EnvNoColor      = "NO_COLOR"
	EnvDebug        = "MICROKT_DEBUG"
	EnvVerbose      = "MICROKT_VERBOSE"
	EnvParallel     = "MICROKT_PARALLEL"
)

// DefaultFiles are probed in the working directory when no config path is
// given.
var DefaultFiles = []string{"microkt.yaml", "microkt.yml", "microkt.json"}

// Duration is a time.Duration written as "100ms" in config files.
type Duration time.Duration

// UnmarshalYAML accepts a duration string or an integer of milliseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// UnmarshalJSON accepts a duration string or an integer of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	return d.parse(strings.Trim(string(data), `"`))
}

func (d *Duration) parse(s string) error {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// MarshalJSON writes the duration in its string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds the settings of one microkt invocation
type Config struct {
	MaxCallDepth    int      `yaml:"max_call_depth" json:"max_call_depth"`
	Color           string   `yaml:"color" json:"color"`
	LanguageVersion string   `yaml:"language_version" json:"language_version"`
	Verbose         bool     `yaml:"verbose" json:"verbose"`
	Debug           bool     `yaml:"debug" json:"debug"`
	Parallel        int      `yaml:"parallel" json:"parallel"`
	WatchDebounce   Duration `yaml:"watch_debounce" json:"watch_debounce"`

	// Source is the file the settings were read from, empty for none.
	Source string `yaml:"-" json:"-"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		MaxCallDepth:  DefaultMaxCallDepth,
		Color:         ColorAuto,
		Parallel:      goruntime.NumCPU(),
		WatchDebounce: Duration(DefaultWatchDebounce),
	}
}

// Debounce returns the watch debounce as a time.Duration
func (c *Config) Debounce() time.Duration { return time.Duration(c.WatchDebounce) }

// UseColor decides whether diagnostics are coloured on a writer that is or
// is not a terminal.
func (c *Config) UseColor(terminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return terminal
}

// Load builds the settings from defaults, the config file and the
// environment. path overrides the MICROKT_CONFIG and working-directory
// lookup; an explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = env.Str(EnvConfig)
	}
	if path == "" {
		path = findDefaultFile(".")
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultFile(dir string) string {
	for _, name := range DefaultFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnv() {
	c.MaxCallDepth = env.Int(EnvMaxCallDepth, c.MaxCallDepth)
	c.Parallel = env.Int(EnvParallel, c.Parallel)
	c.Color = env.Str(EnvColor, c.Color)
	if env.Has(EnvNoColor) {
		c.Color = ColorNever
	}
	if env.Has(EnvDebug) {
		c.Debug = env.Bool(EnvDebug)
	}
	if env.Has(EnvVerbose) {
		c.Verbose = env.Bool(EnvVerbose)
	}
}

// Validate checks ranges and the language version constraint.
func (c *Config) Validate() error {
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("parallel must be positive, got %d", c.Parallel)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative")
	}
	return CheckLanguageVersion(c.LanguageVersion)
}

// CheckLanguageVersion reports whether cli.LanguageVersion satisfies
// constraint. An empty constraint accepts any version.
func CheckLanguageVersion(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid language_version constraint %q: %w", constraint, err)
	}
	v := semver.MustParse(cli.LanguageVersion)
	if ok, errs := c.Validate(v); !ok {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("language version %s does not satisfy %q: %s", v, constraint, strings.Join(msgs, "; "))
	}
	return nil
}

// Flags binds the settings that can be given on the command line. Only
// flags set explicitly override the loaded configuration.
type Flags struct {
	ConfigPath   string
	MaxCallDepth int
	Color        string
	Verbose      bool
	Debug        bool
	Parallel     int

	fs *flag.FlagSet
}

// BindFlags registers the global flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "path to a microkt.yaml or microkt.json file")
	fs.IntVar(&f.MaxCallDepth, "max-depth", DefaultMaxCallDepth, "maximum call depth")
	fs.StringVar(&f.Color, "color", ColorAuto, "colour diagnostics: auto, always or never")
	fs.BoolVar(&f.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&f.Debug, "debug", false, "debug output with phase timings")
	fs.IntVar(&f.Parallel, "parallel", goruntime.NumCPU(), "number of scripts run concurrently by test")
	return f
}

// Load reads the configuration named by --config, then applies the flags
// that were set.
func (f *Flags) Load() (*Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "max-depth":
			cfg.MaxCallDepth = f.MaxCallDepth
		case "color":
			cfg.Color = f.Color
		case "verbose":
			cfg.Verbose = f.Verbose
		case "debug":
			cfg.Debug = f.Debug
		case "parallel":
			cfg.Parallel = f.Parallel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Logger creates a CLI logger writing to w and honouring the verbose and
// debug settings.
func (c *Config) Logger(w io.Writer) *cli.Logger {
	return cli.NewLoggerTo(w, c.Verbose, c.Debug)
}
