package testrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/engine"
)

// Outcome of one script
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

// ErrFailures is returned by Run when at least one script failed.
var ErrFailures = errors.New("test failures")

// Options control the behavior of the suite.
type Options struct {
	Paths        []string      // files or directories; directories are searched recursively
	Parallel     int           // number of scripts run concurrently
	Short        bool          // skip scripts marked slow
	Color        bool          // colorize human-readable output
	FailFast     bool          // stop scheduling scripts after the first failure
	MaxCallDepth int           // forwarded to every run; 0 keeps the default
	Pattern      string        // optional regex matched against script paths
	JUnitPath    string        // optional JUnit XML output path
	Timeout      time.Duration // per-suite timeout; 0 disables
	Logger       engine.Logger // optional phase timings
}

// FileResult captures a single script execution.
type FileResult struct {
	Path       string
	Outcome    Outcome
	Expected   Expectation
	Output     []string
	Err        error    // the run error, nil when the script ran clean
	Mismatches []string // why the script failed
	Duration   time.Duration
}

// Result aggregates outcomes per script and overall.
type Result struct {
	Files    []FileResult
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Suite runs every script found under its paths.
type Suite struct {
	opts Options
}

// NewSuite creates a suite with sane defaults.
func NewSuite(opts Options) *Suite {
	if len(opts.Paths) == 0 {
		opts.Paths = []string{"."}
	}
	if opts.Parallel <= 0 {
		opts.Parallel = runtime.NumCPU()
	}
	return &Suite{opts: opts}
}

// IsScript reports whether path has a microkt extension.
func IsScript(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".kt" || ext == ".kts"
}

// Discover lists the scripts under the suite paths in lexical order.
func (s *Suite) Discover() ([]string, error) {
	var re *regexp.Regexp
	if strings.TrimSpace(s.opts.Pattern) != "" {
		var err error
		if re, err = regexp.Compile(s.opts.Pattern); err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] && (re == nil || re.MatchString(path)) {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range s.opts.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsScript(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// Run executes the scripts and writes a human-readable report to out,
// which may be nil.
func (s *Suite) Run(ctx context.Context, out io.Writer) (Result, error) {
	start := time.Now()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	files, err := s.Discover()
	if err != nil {
		return Result{}, err
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallel)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = FileResult{Path: path, Outcome: OutcomeSkip}
				return nil
			}
			results[i] = s.RunFile(path)
			if s.opts.FailFast && results[i].Outcome == OutcomeFail {
				return fmt.Errorf("%s: %w", path, ErrFailures)
			}
			return nil
		})
	}
	// Errors only signal fail-fast cancellation; outcomes are in results.
	_ = g.Wait()

	res := Result{Files: results, Total: len(results)}
	for _, fr := range results {
		switch fr.Outcome {
		case OutcomePass:
			res.Passed++
		case OutcomeFail:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	res.Duration = time.Since(start)

	if s.opts.JUnitPath != "" {
		if err := writeJUnit(s.opts.JUnitPath, res); err != nil {
			return res, err
		}
	}
	if out != nil {
		s.writeSummary(out, res)
	}
	if res.Failed > 0 {
		return res, ErrFailures
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// RunFile runs one script and checks it against its expectations.
func (s *Suite) RunFile(path string) (fr FileResult) {
	start := time.Now()
	fr = FileResult{Path: path, Outcome: OutcomeFail}
	defer func() { fr.Duration = time.Since(start) }()

	data, err := os.ReadFile(path)
	if err != nil {
		fr.Err = err
		fr.Mismatches = []string{err.Error()}
		return fr
	}
	src := string(data)

	exp, err := Parse(src)
	if err != nil {
		fr.Err = err
		fr.Mismatches = []string{err.Error()}
		return fr
	}
	fr.Expected = exp
	if exp.Slow && s.opts.Short {
		fr.Outcome = OutcomeSkip
		return fr
	}

	opts := []engine.Option{
		engine.WithFilename(path),
		engine.WithMaxCallDepth(s.opts.MaxCallDepth),
	}
	if filepath.Ext(path) == ".kt" {
		opts = append(opts, engine.WithEntryPoint("main"))
	}
	if s.opts.Logger != nil {
		opts = append(opts, engine.WithLogger(s.opts.Logger))
	}

	res, runErr := engine.Run(src, opts...)
	fr.Output, fr.Err = res.Output, runErr
	fr.Mismatches = Check(exp, res.Output, runErr)
	if len(fr.Mismatches) == 0 {
		fr.Outcome = OutcomePass
	}
	return fr
}

// Check compares a run against an expectation and describes every
// difference. An empty result means the run matched.
func Check(exp Expectation, output []string, err error) []string {
	var problems []string

	switch {
	case exp.Error == "" && err != nil:
		problems = append(problems, fmt.Sprintf("unexpected error: %v", err))
	case exp.Error != "" && err == nil:
		problems = append(problems, fmt.Sprintf("expected %s error, run succeeded", exp.Error))
	case exp.Error != "" && !errors.Is(err, exp.Error):
		kind := "unknown"
		if de, ok := diagnostic.As(err); ok {
			kind = string(de.Kind)
		}
		problems = append(problems, fmt.Sprintf("expected %s error, got %s: %v", exp.Error, kind, err))
	}

	return append(problems, DiffLines(exp.Lines, output)...)
}

// DiffLines reports each line where actual differs from expected.
func DiffLines(expected, actual []string) []string {
	var diff []string
	n := len(expected)
	if len(actual) > n {
		n = len(actual)
	}

	for i := 0; i < n; i++ {
		switch {
		case i >= len(expected):
			diff = append(diff, fmt.Sprintf("line %d: unexpected %q", i+1, actual[i]))
		case i >= len(actual):
			diff = append(diff, fmt.Sprintf("line %d: missing %q", i+1, expected[i]))
		case expected[i] != actual[i]:
			diff = append(diff, fmt.Sprintf("line %d: expected %q, got %q", i+1, expected[i], actual[i]))
		}
	}
	return diff
}

// writeSummary prints one line per script and a final colored summary.
func (s *Suite) writeSummary(w io.Writer, res Result) {
	paint := func(code, str string) string {
		if s.opts.Color {
			return code + str + "\x1b[0m"
		}
		return str
	}
	const (
		bold   = "\x1b[1m"
		green  = "\x1b[32m"
		red    = "\x1b[31m"
		yellow = "\x1b[33m"
	)

	for _, fr := range res.Files {
		line := fmt.Sprintf("%s\t%s\t%.2fs\n", fr.Outcome, fr.Path, fr.Duration.Seconds())
		switch fr.Outcome {
		case OutcomePass:
			io.WriteString(w, paint(green, line))
		case OutcomeFail:
			io.WriteString(w, paint(red, line))
			for _, m := range fr.Mismatches {
				fmt.Fprintf(w, "  %s\n", m)
			}
		default:
			io.WriteString(w, paint(yellow, line))
		}
	}

	fmt.Fprintf(w, "\n%s %d scripts, %s %d, %s %d, %s %d in %.2fs\n",
		paint(bold, "SUMMARY:"), res.Total,
		paint(green, "passed:"), res.Passed,
		paint(red, "failed:"), res.Failed,
		paint(yellow, "skipped:"), res.Skipped,
		res.Duration.Seconds())
}

// writeJUnit emits a small JUnit XML summary file for CI consumption.
func writeJUnit(path string, res Result) error {
	b := &strings.Builder{}
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(b, "<testsuite name=\"microkt\" tests=\"%d\" failures=\"%d\" skipped=\"%d\" time=\"%.2f\">\n",
		res.Total, res.Failed, res.Skipped, res.Duration.Seconds())
	for _, fr := range res.Files {
		fmt.Fprintf(b, "  <testcase name=\"%s\" classname=\"%s\" time=\"%.3f\">\n",
			xmlEscape(filepath.Base(fr.Path)), xmlEscape(filepath.Dir(fr.Path)), fr.Duration.Seconds())
		switch fr.Outcome {
		case OutcomeFail:
			fmt.Fprintf(b, "    <failure message=\"%s\"/>\n", xmlEscape(strings.Join(fr.Mismatches, "; ")))
		case OutcomeSkip:
			b.WriteString("    <skipped/>\n")
		}
		if len(fr.Output) > 0 {
			fmt.Fprintf(b, "    <system-out>%s</system-out>\n", xmlEscape(strings.Join(fr.Output, "\n")))
		}
		b.WriteString("  </testcase>\n")
	}
	b.WriteString("</testsuite>\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// xmlEscape performs minimal XML escaping for text and attribute values.
func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
