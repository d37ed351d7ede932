// Package interpreter evaluates resolved microkt programs by walking the
// annotated AST.
//
// Variables live in slot arrays: one global frame per run and a fresh frame
// per function call or construction. Control leaving a function is modelled
// as a returnSignal error intercepted at the call boundary.
package interpreter

import (
	"errors"
	"fmt"
	"time"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/position"
	"github.com/gaultier/microkt/internal/runtime"
)

// DefaultMaxCallDepth bounds nested calls and constructions. A call costs a
// few hundred bytes to a few KB of Go stack, which keeps the limit well
// inside the runtime's 1 GB maximum stack.
const DefaultMaxCallDepth = 1 << 17

// Options configures an interpreter
type Options struct {
	// MaxCallDepth is the deepest allowed call nesting. Zero selects
	// DefaultMaxCallDepth.
	MaxCallDepth int
}

// Interpreter executes one program. It is not safe for concurrent use.
type Interpreter struct {
	sink     runtime.Sink
	heap     *runtime.Heap
	maxDepth int

	globals []runtime.Value
	ready   []bool // global slots whose declaration has run
	depth   int
	stats   runtime.Stats
}

// frame holds the slots of one function call or construction
type frame struct {
	slots []runtime.Value
}

type returnSignal struct {
	value runtime.Value
}

func (r returnSignal) Error() string { return "return" }

// New creates an interpreter printing to sink
func New(sink runtime.Sink, opts Options) *Interpreter {
	depth := opts.MaxCallDepth
	if depth <= 0 {
		depth = DefaultMaxCallDepth
	}
	return &Interpreter{
		sink:     sink,
		heap:     runtime.NewHeap(),
		maxDepth: depth,
	}
}

// Execute runs the top-level statements in order, then the entry point when
// the program has one. Output already printed is kept when a runtime error
// stops execution.
func (in *Interpreter) Execute(program *ast.Program) error {
	start := time.Now()
	defer func() {
		in.stats.Heap = in.heap.Stats()
		in.stats.Duration = time.Since(start)
	}()

	in.heap.Reset()
	in.stats = runtime.Stats{}
	in.depth = 0
	in.globals = make([]runtime.Value, len(program.GlobalTypes))
	in.ready = make([]bool, len(program.GlobalTypes))
	for i, t := range program.GlobalTypes {
		in.globals[i] = runtime.Zero(t)
	}

	for _, stmt := range program.Statements {
		if err := in.exec(stmt, nil); err != nil {
			return err
		}
	}

	if program.Entry != nil {
		if _, err := in.call(program.Entry, nil, program.Entry.NameSpan); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the counters of the last Execute
func (in *Interpreter) Stats() runtime.Stats { return in.stats }

// load reads a variable. A global read before its declaration ran fails.
func (in *Interpreter) load(id *ast.Identifier, fr *frame) (runtime.Value, error) {
	s := id.Storage
	if !s.Global {
		return fr.slots[s.Slot], nil
	}
	if !in.ready[s.Slot] {
		return runtime.Unit, uninitialized(id)
	}
	return in.globals[s.Slot], nil
}

// store writes a variable. Assignments to a global are subject to the same
// rule as reads; declarations mark the slot ready.
func (in *Interpreter) store(s ast.Storage, fr *frame, v runtime.Value, declare bool) {
	if !s.Global {
		fr.slots[s.Slot] = v
		return
	}
	in.globals[s.Slot] = v
	if declare {
		in.ready[s.Slot] = true
	}
}

func uninitialized(id *ast.Identifier) error {
	return diagnostic.New(diagnostic.UninitializedVariable, id.Span, "variable %s is used before its declaration runs", id.Name)
}

func (in *Interpreter) exec(stmt ast.Statement, fr *frame) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		v, err := in.eval(s.Init, fr)
		if err != nil {
			return err
		}
		in.store(s.Storage, fr, v.Convert(s.Resolved), true)

	case *ast.FunctionDecl, *ast.ClassDecl:
		// Declarations were hoisted by the resolver.

	case *ast.ExprStmt:
		_, err := in.eval(s.Expr, fr)
		return err

	case *ast.Assignment:
		return in.assign(s, fr)

	case *ast.ReturnStmt:
		v := runtime.Unit
		if s.Value != nil {
			var err error
			if v, err = in.eval(s.Value, fr); err != nil {
				return err
			}
		}
		return returnSignal{value: v.Convert(s.Function.Return)}

	case *ast.Block:
		for _, inner := range s.Statements {
			if err := in.exec(inner, fr); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unsupported statement %T", stmt)
	}
	return nil
}

func (in *Interpreter) assign(a *ast.Assignment, fr *frame) error {
	switch t := a.Target.(type) {
	case *ast.Identifier:
		v, err := in.eval(a.Value, fr)
		if err != nil {
			return err
		}
		if t.Storage.Global && !in.ready[t.Storage.Slot] {
			return uninitialized(t)
		}
		in.store(t.Storage, fr, v.Convert(t.Type), false)

	case *ast.MemberExpr:
		inst, err := in.receiver(t, fr)
		if err != nil {
			return err
		}
		v, err := in.eval(a.Value, fr)
		if err != nil {
			return err
		}
		inst.Set(t.Resolved, v)

	default:
		return fmt.Errorf("unsupported assignment target %T", a.Target)
	}
	return nil
}

func (in *Interpreter) enter(span position.Span) error {
	if in.depth >= in.maxDepth {
		return diagnostic.New(diagnostic.StackOverflow, span, "stack overflow: call depth exceeded %d", in.maxDepth)
	}
	in.depth++
	if in.depth > in.stats.MaxDepth {
		in.stats.MaxDepth = in.depth
	}
	return nil
}

// call binds converted arguments into a fresh frame and runs the body.
func (in *Interpreter) call(decl *ast.FunctionDecl, args []runtime.Value, span position.Span) (runtime.Value, error) {
	if err := in.enter(span); err != nil {
		return runtime.Unit, err
	}
	defer func() { in.depth-- }()
	in.stats.Calls++

	fr := &frame{slots: make([]runtime.Value, decl.FrameSize)}
	for i, p := range decl.Parameters {
		fr.slots[p.Slot] = args[i].Convert(p.Type.Resolved)
	}

	err := in.exec(decl.Body, fr)
	var ret returnSignal
	if errors.As(err, &ret) {
		return ret.value, nil
	}
	if err != nil {
		return runtime.Unit, err
	}
	return runtime.Unit, nil
}

// construct allocates an instance and evaluates the field defaults in
// declaration order.
func (in *Interpreter) construct(cd *ast.ClassDecl, span position.Span) (runtime.Value, error) {
	if err := in.enter(span); err != nil {
		return runtime.Unit, err
	}
	defer func() { in.depth-- }()
	in.stats.Constructions++

	inst := in.heap.Allocate(cd.Resolved)
	fr := &frame{slots: make([]runtime.Value, cd.FrameSize)}
	for _, fd := range cd.Fields {
		v, err := in.eval(fd.Default, fr)
		if err != nil {
			return runtime.Unit, err
		}
		inst.Set(fd.Field, v)
	}
	return runtime.Ref(inst), nil
}

func (in *Interpreter) println(args []runtime.Value) error {
	line := ""
	if len(args) == 1 {
		line = args[0].String()
	}
	in.stats.Lines++
	return in.sink.WriteLine(line)
}
