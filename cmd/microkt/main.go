// Package main provides the microkt CLI. It parses subcommands, loads the
// layered configuration and delegates to the engine and the expect harness.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/cli"
	"github.com/gaultier/microkt/internal/config"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/engine"
	"github.com/gaultier/microkt/internal/lexer"
	"github.com/gaultier/microkt/internal/position"
	mrt "github.com/gaultier/microkt/internal/runtime"
	"github.com/gaultier/microkt/internal/testrunner"
	"github.com/gaultier/microkt/internal/watch"
)

const tool = "microkt"

var commands = []cli.CommandInfo{
	{
		Name:        "run",
		Usage:       "microkt run [OPTIONS] <file.kt|file.kts>",
		Description: "Run a script",
		Examples:    []string{"microkt run hello.kts", "microkt run --watch --stats app.kt"},
		Flags: []cli.FlagInfo{
			{Name: "entry", Usage: "Function called after top-level statements (default main for .kt)"},
			{Name: "watch", Usage: "Re-run whenever the file changes"},
			{Name: "stats", Usage: "Print run counters to stderr"},
		},
	},
	{
		Name:        "test",
		Usage:       "microkt test [OPTIONS] [dir...]",
		Description: "Run scripts and check their // expect: annotations",
		Examples:    []string{"microkt test internal/engine/testdata", "microkt test --short --junit report.xml ."},
		Flags: []cli.FlagInfo{
			{Name: "short", Usage: "Skip scripts marked // slow"},
			{Name: "fail-fast", Usage: "Stop after the first failing script"},
			{Name: "pattern", Usage: "Only run scripts whose path matches this regex"},
			{Name: "junit", Usage: "Write a JUnit XML report to this path"},
			{Name: "timeout", Usage: "Abort the suite after this duration"},
			{Name: "parallel", Usage: "Scripts run concurrently", Default: "NumCPU"},
		},
	},
	{
		Name:        "tokens",
		Usage:       "microkt tokens <file>",
		Description: "Print the token stream of a file",
	},
	{
		Name:        "ast",
		Usage:       "microkt ast [--entry name] <file>",
		Description: "Print the resolved tree with types, slots and layouts",
	},
	{
		Name:        "version",
		Usage:       "microkt version [--json] [--check constraint]",
		Description: "Print version information",
		Flags: []cli.FlagInfo{
			{Name: "json", Usage: "Output in JSON format"},
			{Name: "check", Usage: "Fail unless the language version satisfies this semver constraint"},
		},
	},
	{
		Name:        "help",
		Usage:       "microkt help [command]",
		Description: "Show help",
	},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		cli.PrintUsage(stderr, tool, commands)
		return 2
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "help", "-h", "--help":
		return help(rest, stdout, stderr)
	case "version", "-v", "--version":
		return version(rest, stdout, stderr)
	case "run":
		return runScript(rest, stdout, stderr)
	case "test":
		return test(rest, stdout, stderr)
	case "tokens":
		return tokens(rest, stdout, stderr)
	case "ast":
		return dumpTree(rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown subcommand: %s\n", sub)
		cli.PrintUsage(stderr, tool, commands)
		return 2
	}
}

func help(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		cli.PrintUsage(stdout, tool, commands)
		return 0
	}
	cmd, ok := cli.FindCommand(commands, args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		return 2
	}
	cli.PrintCommandUsage(stdout, tool, cmd)
	return 0
}

func version(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "output in JSON format")
	fs.BoolVar(jsonOutput, "j", false, "shorthand for --json")
	check := fs.String("check", "", "semver constraint the language version must satisfy")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *check != "" {
		if err := config.CheckLanguageVersion(*check); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	cli.PrintVersion(stdout, stderr, tool, *jsonOutput)
	return 0
}

// command bundles what every file-based subcommand needs after flag parsing.
type command struct {
	cfg    *config.Config
	logger *cli.Logger
	color  bool
	stderr io.Writer
}

// setup parses args with the global flags bound, loads the config and
// requires at least minArgs positional arguments.
func setup(fs *flag.FlagSet, args []string, minArgs int, stderr io.Writer) (*command, []string, int) {
	fs.SetOutput(stderr)
	flags := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, 2
	}

	if cmd, ok := cli.FindCommand(commands, fs.Name()); ok {
		if err := cli.ValidateArgs(fs.Args(), minArgs, cmd.Usage); err != nil {
			fmt.Fprintln(stderr, err)
			return nil, nil, 2
		}
	}

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, nil, 1
	}

	logger := cfg.Logger(stderr)
	if cfg.Source != "" {
		logger.Debug("config loaded from %s", cfg.Source)
	}
	return &command{
		cfg:    cfg,
		logger: logger,
		color:  cfg.UseColor(isTerminal(stderr)),
		stderr: stderr,
	}, fs.Args(), 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && cli.IsTerminal(f)
}

// engineOptions returns the options shared by run and ast. Files with the
// .kt extension get main as entry point unless entry overrides it.
func (c *command) engineOptions(path, entry string) []engine.Option {
	opts := []engine.Option{
		engine.WithFilename(path),
		engine.WithMaxCallDepth(c.cfg.MaxCallDepth),
		engine.WithLogger(c.logger),
	}
	if entry == "" && filepath.Ext(path) == ".kt" {
		entry = "main"
	}
	if entry != "" {
		opts = append(opts, engine.WithEntryPoint(entry))
	}
	return opts
}

func (c *command) report(err error, path, src string) {
	diagnostic.Render(c.stderr, err, position.NewSourceFile(path, src), c.color)
}

func runScript(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	entry := fs.String("entry", "", "entry point function")
	watchMode := fs.Bool("watch", false, "re-run on change")
	stats := fs.Bool("stats", false, "print run counters")
	c, rest, code := setup(fs, args, 1, stderr)
	if c == nil {
		return code
	}
	path := rest[0]

	once := func() int {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "error: failed to read %s: %v\n", path, err)
			return 1
		}

		opts := append(c.engineOptions(path, *entry), engine.WithSink(stdout))
		res, err := engine.Run(string(src), opts...)
		if *stats {
			if err := mrt.WriteMetrics(stderr, map[string]mrt.MetricFunc{tool: res.Stats.Snapshot}); err != nil {
				c.logger.Warn("failed to write stats: %v", err)
			}
		}
		if err != nil {
			c.report(err, path, string(src))
			return 1
		}
		return 0
	}

	if !*watchMode {
		return once()
	}
	return c.watch(path, once)
}

// watch runs fn once and again after every change to path until interrupted.
func (c *command) watch(path string, fn func() int) int {
	w, err := watch.New(c.cfg.Debounce())
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fn()
	c.logger.Info("watching %s", path)
	err = watch.Run(ctx, w, func(ev watch.Event) {
		c.logger.Info("%s changed (%s), re-running", ev.Path, ev.Op)
		fn()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func test(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	short := fs.Bool("short", false, "skip slow scripts")
	failFast := fs.Bool("fail-fast", false, "stop after the first failure")
	pattern := fs.String("pattern", "", "regex matched against script paths")
	junit := fs.String("junit", "", "JUnit XML report path")
	timeout := fs.Duration("timeout", 0, "suite timeout (e.g., 30s)")
	c, rest, code := setup(fs, args, 0, stderr)
	if c == nil {
		return code
	}

	suite := testrunner.NewSuite(testrunner.Options{
		Paths:        rest,
		Parallel:     c.cfg.Parallel,
		Short:        *short,
		Color:        c.cfg.UseColor(isTerminal(stdout)),
		FailFast:     *failFast,
		MaxCallDepth: c.cfg.MaxCallDepth,
		Pattern:      *pattern,
		JUnitPath:    *junit,
		Timeout:      *timeout,
		Logger:       c.logger,
	})

	start := time.Now()
	res, err := suite.Run(context.Background(), stdout)
	c.logger.Info("%d scripts in %s", res.Total, time.Since(start))
	if err != nil {
		if !errors.Is(err, testrunner.ErrFailures) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func tokens(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	c, rest, code := setup(fs, args, 1, stderr)
	if c == nil {
		return code
	}
	path := rest[0]

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to read %s: %v\n", path, err)
		return 1
	}
	toks, err := lexer.TokenizeFile(string(src), path)
	for _, tok := range toks {
		fmt.Fprintln(stdout, tok.String())
	}
	if err != nil {
		c.report(err, path, string(src))
		return 1
	}
	return 0
}

func dumpTree(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	entry := fs.String("entry", "", "entry point function")
	c, rest, code := setup(fs, args, 1, stderr)
	if c == nil {
		return code
	}
	path := rest[0]

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to read %s: %v\n", path, err)
		return 1
	}
	program, err := engine.Compile(string(src), c.engineOptions(path, *entry)...)
	if err != nil {
		c.report(err, path, string(src))
		return 1
	}
	fmt.Fprint(stdout, ast.Dump(program))
	return 0
}
