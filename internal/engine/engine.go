// Package engine runs microkt source end to end: parse, resolve, execute.
package engine

import (
	"io"
	"time"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/interpreter"
	"github.com/gaultier/microkt/internal/parser"
	"github.com/gaultier/microkt/internal/position"
	"github.com/gaultier/microkt/internal/resolver"
	"github.com/gaultier/microkt/internal/runtime"
)

// Logger receives phase timings. *cli.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...any)
}

type options struct {
	filename     string
	entryPoint   string
	sink         io.Writer
	logger       Logger
	maxCallDepth int
}

// Option configures a run
type Option func(*options)

// WithFilename records filename in diagnostics positions.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithEntryPoint invokes the named zero-parameter function after the
// top-level statements.
func WithEntryPoint(name string) Option {
	return func(o *options) { o.entryPoint = name }
}

// WithSink writes every printed line to w as it is produced.
func WithSink(w io.Writer) Option {
	return func(o *options) { o.sink = w }
}

// WithLogger enables phase timing output.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxCallDepth bounds nested calls. Zero keeps the interpreter default.
func WithMaxCallDepth(n int) Option {
	return func(o *options) { o.maxCallDepth = n }
}

// Result is the outcome of a run. It is never nil, even when Run fails.
type Result struct {
	// Output holds the printed lines in order. After a runtime error it
	// holds what was printed before the failure; after a compile error it
	// is empty.
	Output  []string
	Program *ast.Program
	Source  *position.SourceFile
	Stats   runtime.Stats
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) debug(format string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(format, args...)
	}
}

// Compile parses and resolves source without running it.
func Compile(source string, opts ...Option) (*ast.Program, error) {
	return compile(source, newOptions(opts))
}

func compile(source string, o *options) (*ast.Program, error) {
	start := time.Now()
	program, err := parser.Parse(source, o.filename)
	if err != nil {
		return nil, err
	}
	o.debug("parsed %d statements in %s", len(program.Statements), time.Since(start))

	start = time.Now()
	if err := resolver.Resolve(program, resolver.Config{EntryPoint: o.entryPoint}); err != nil {
		return nil, err
	}
	o.debug("resolved %d functions, %d classes in %s", len(program.Functions), len(program.Classes), time.Since(start))
	return program, nil
}

// Run compiles and executes source. The returned error is a
// *diagnostic.Error for language failures.
func Run(source string, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	res := &Result{
		Output: []string{},
		Source: position.NewSourceFile(o.filename, source),
	}

	program, err := compile(source, o)
	if err != nil {
		return res, err
	}
	res.Program = program

	out := runtime.NewOutput(o.sink)
	in := interpreter.New(out, interpreter.Options{MaxCallDepth: o.maxCallDepth})
	err = in.Execute(program)

	if lines := out.Lines(); lines != nil {
		res.Output = lines
	}
	res.Stats = in.Stats()
	o.debug("executed in %s: %d calls, %d constructions, max depth %d",
		res.Stats.Duration, res.Stats.Calls, res.Stats.Constructions, res.Stats.MaxDepth)
	return res, err
}
