// Package resolver performs name resolution and type checking of microkt
// programs.
//
// Resolution runs in two passes. The first pass collects every class and
// function declaration and computes class layouts, so declarations may be
// used before they appear in the source. The second pass walks statements in
// source order, binding variables to frame slots and annotating the AST with
// static types and call targets. The first error stops resolution.
package resolver

import (
	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/layout"
	"github.com/gaultier/microkt/internal/position"
	"github.com/gaultier/microkt/internal/types"
)

// Config controls program-level checks
type Config struct {
	// EntryPoint names a parameterless function the program must declare.
	// Empty means the top-level statements are the whole program.
	EntryPoint string
}

// funcState tracks on-demand resolution of function bodies
type funcState int

const (
	funcPending funcState = iota
	funcResolving
	funcDone
)

type function struct {
	decl   *ast.FunctionDecl
	params []*types.Type
	state  funcState
}

// Resolver represents the name resolver and type checker
type Resolver struct {
	config  Config
	program *ast.Program
	layouts *layout.LayoutCalculator

	global  *Scope
	scope   *Scope
	current *function // function whose body is being resolved, nil at top level

	functions map[string]*function
	classes   map[string]*ast.ClassDecl

	// globals maps each top-level variable to its declaration, so function
	// bodies can see the whole top-level scope. forcing is the top-level
	// declaration resolved ahead of the statement walk, if any.
	globals     map[string]*ast.VarDecl
	globalState map[*ast.VarDecl]funcState
	bound       map[*ast.VarDecl]*Symbol
	forcing     *ast.VarDecl

	err *diagnostic.Error
}

// bailout unwinds the resolver after the first error
type bailout struct{}

// NewResolver creates a new resolver
func NewResolver(config Config) *Resolver {
	return &Resolver{
		config:    config,
		layouts:   layout.NewLayoutCalculator(),
		functions:   make(map[string]*function),
		classes:     make(map[string]*ast.ClassDecl),
		globals:     make(map[string]*ast.VarDecl),
		globalState: make(map[*ast.VarDecl]funcState),
		bound:       make(map[*ast.VarDecl]*Symbol),
	}
}

// Resolve resolves and type checks a parsed program in place.
func Resolve(program *ast.Program, config Config) error {
	return NewResolver(config).ResolveProgram(program)
}

// ResolveProgram annotates program in place. The returned error, if any, is
// a *diagnostic.Error of a resolve-phase kind.
func (r *Resolver) ResolveProgram(program *ast.Program) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(bailout); !ok {
				panic(rec)
			}
			err = r.err
		}
	}()

	r.program = program
	globals := &Frame{Global: true}
	r.global = NewScope(ScopeKindGlobal, nil, globals)
	r.scope = r.global

	// First pass: declarations
	r.collectClasses()
	r.collectFunctions()
	r.collectGlobals()

	// Second pass: statements in source order
	for _, stmt := range program.Statements {
		r.resolveStatement(stmt)
	}
	for _, fn := range program.Functions {
		if f := r.functions[fn.Name]; f.state == funcPending {
			r.resolveFunction(f)
		}
	}

	program.GlobalTypes = globals.Types
	r.checkEntryPoint()
	return nil
}

func (r *Resolver) errorf(kind diagnostic.Kind, span position.Span, format string, args ...any) {
	r.err = diagnostic.New(kind, span, format, args...)
	panic(bailout{})
}

// ====== First pass ======

func (r *Resolver) collectClasses() {
	for _, stmt := range r.program.Statements {
		cd, ok := stmt.(*ast.ClassDecl)
		if !ok {
			continue
		}
		if _, builtin := types.LookupPrimitive(cd.Name); builtin {
			r.errorf(diagnostic.Redeclaration, cd.NameSpan, "class %s conflicts with the built-in type", cd.Name)
		}
		if prev, exists := r.classes[cd.Name]; exists {
			r.errorf(diagnostic.Redeclaration, cd.NameSpan, "class %s is already declared at %s", cd.Name, prev.NameSpan.Start)
		}
		cd.Resolved = types.NewClass(cd.Name)
		r.classes[cd.Name] = cd
		r.program.Classes = append(r.program.Classes, cd)
	}

	// Field types may name any class, so layouts are computed once every
	// class name is known.
	for _, cd := range r.program.Classes {
		r.layoutClass(cd)
	}
}

func (r *Resolver) layoutClass(cd *ast.ClassDecl) {
	class := cd.Resolved.Class
	infos := make([]layout.FieldInfo, 0, len(cd.Fields))

	for _, fd := range cd.Fields {
		t := r.resolveTypeRef(fd.Type)
		field, err := class.AddField(fd.Name, t, fd.Mutable)
		if err != nil {
			r.errorf(diagnostic.Redeclaration, fd.Span, "%v", err)
		}
		fd.Field = field
		infos = append(infos, layout.FieldInfo{
			Name:      fd.Name,
			Type:      t.String(),
			Size:      int64(t.Size),
			Alignment: alignmentOf(t),
		})
	}

	cl, err := r.layouts.CalculateClassLayout(cd.Name, infos)
	if err != nil {
		r.errorf(diagnostic.TypeMismatch, cd.NameSpan, "%v", err)
	}
	offsets := make([]int, len(cl.Fields))
	for i, f := range cl.Fields {
		offsets[i] = int(f.Offset)
	}
	if err := class.Freeze(offsets, int(cl.TotalSize)); err != nil {
		r.errorf(diagnostic.Redeclaration, cd.NameSpan, "%v", err)
	}
}

// alignmentOf returns the payload alignment of a field of type t
func alignmentOf(t *types.Type) int64 {
	if t.Size == 0 {
		return 1
	}
	return int64(t.Size)
}

// collectFunctions hoists every function declaration, at any depth, into the
// global function namespace.
func (r *Resolver) collectFunctions() {
	ast.Inspect(r.program, func(n ast.Node) bool {
		if decl, ok := n.(*ast.FunctionDecl); ok {
			r.declareFunction(decl)
		}
		return true
	})
}

// collectGlobals records the top-level variables. The first declaration of
// a name wins; a duplicate is reported when the walk reaches it.
func (r *Resolver) collectGlobals() {
	for _, stmt := range r.program.Statements {
		d, ok := stmt.(*ast.VarDecl)
		if !ok {
			continue
		}
		r.globalState[d] = funcPending
		if _, dup := r.globals[d.Name]; !dup {
			r.globals[d.Name] = d
		}
	}
}

func (r *Resolver) declareFunction(decl *ast.FunctionDecl) {
	switch {
	case decl.Name == builtinPrintln:
		r.errorf(diagnostic.Redeclaration, decl.NameSpan, "function %s conflicts with the built-in function", decl.Name)
	case r.functions[decl.Name] != nil:
		prev := r.functions[decl.Name].decl
		r.errorf(diagnostic.Redeclaration, decl.NameSpan, "function %s is already declared at %s", decl.Name, prev.NameSpan.Start)
	case r.classes[decl.Name] != nil:
		r.errorf(diagnostic.Redeclaration, decl.NameSpan, "function %s conflicts with class %s", decl.Name, decl.Name)
	}

	fn := &function{decl: decl}
	for _, p := range decl.Parameters {
		fn.params = append(fn.params, r.resolveTypeRef(p.Type))
	}
	if decl.ReturnType != nil {
		decl.Return = r.resolveTypeRef(decl.ReturnType)
	}

	r.functions[decl.Name] = fn
	r.program.Functions = append(r.program.Functions, decl)
}

func (r *Resolver) resolveTypeRef(ref *ast.TypeRef) *types.Type {
	if t, ok := types.LookupPrimitive(ref.Name); ok {
		ref.Resolved = t
		return t
	}
	if cd, ok := r.classes[ref.Name]; ok {
		ref.Resolved = cd.Resolved
		return cd.Resolved
	}
	r.errorf(diagnostic.UnresolvedSymbol, ref.Span, "unresolved reference: type %s", ref.Name)
	return nil
}

func (r *Resolver) checkEntryPoint() {
	name := r.config.EntryPoint
	if name == "" {
		return
	}
	fn, ok := r.functions[name]
	if !ok {
		at := position.Span{Start: r.program.Span.Start, End: r.program.Span.Start}
		r.errorf(diagnostic.UnresolvedSymbol, at, "entry point function %s is not declared", name)
	}
	if len(fn.params) > 0 {
		r.errorf(diagnostic.ArgumentMismatch, fn.decl.NameSpan, "entry point %s must not declare parameters", name)
	}
	r.program.Entry = fn.decl
}

// ====== Second pass: declarations and statements ======

func (r *Resolver) enterScope(kind ScopeKind) {
	r.scope = NewScope(kind, r.scope, nil)
}

func (r *Resolver) exitScope() {
	r.scope = r.scope.Parent
}

func (r *Resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		state, topLevel := r.globalState[s]
		switch {
		case !topLevel:
			r.resolveVarDecl(s)
		case state == funcPending:
			r.resolveGlobal(s)
		}
	case *ast.FunctionDecl:
		if fn := r.functions[s.Name]; fn.state == funcPending {
			r.resolveFunction(fn)
		}
	case *ast.ClassDecl:
		r.resolveFieldDefaults(s)
	case *ast.ExprStmt:
		r.resolveExpr(s.Expr, false)
	case *ast.Assignment:
		r.resolveAssignment(s)
	case *ast.ReturnStmt:
		r.resolveReturn(s)
	case *ast.Block:
		r.resolveBlock(s, false)
	}
}

// resolveBlock resolves a block in a fresh scope. When used, the block is an
// if branch whose value is its final statement.
func (r *Resolver) resolveBlock(b *ast.Block, used bool) *types.Type {
	r.enterScope(ScopeKindBlock)
	t := types.Unit
	for i, stmt := range b.Statements {
		if used && i == len(b.Statements)-1 {
			t = r.resolveBranch(stmt, true)
			continue
		}
		r.resolveStatement(stmt)
	}
	r.exitScope()
	return t
}

// resolveBranch resolves an if branch and returns its value type. A branch
// that leaves the function has type Nothing.
func (r *Resolver) resolveBranch(stmt ast.Statement, used bool) *types.Type {
	switch s := stmt.(type) {
	case *ast.Block:
		return r.resolveBlock(s, used)
	case *ast.ExprStmt:
		t := r.resolveExpr(s.Expr, used)
		if used {
			return t
		}
	case *ast.ReturnStmt:
		r.resolveReturn(s)
		return types.Nothing
	default:
		r.resolveStatement(stmt)
	}
	return types.Unit
}

func (r *Resolver) resolveVarDecl(d *ast.VarDecl) {
	var declared *types.Type
	if d.DeclaredType != nil {
		declared = r.resolveTypeRef(d.DeclaredType)
	}

	t := r.resolveExpr(d.Init, true)
	switch {
	case declared != nil:
		r.expectAssignable(diagnostic.TypeMismatch, d.Init, declared)
		t = declared
	case t == types.Nothing:
		r.errorf(diagnostic.TypeMismatch, d.Init.GetSpan(), "cannot infer a type for %s from an expression that never completes", d.Name)
	}

	// Declared after the initialiser, so the initialiser sees any outer
	// variable of the same name.
	if _, bound := r.bound[d]; !bound {
		r.declareVar(r.scope, d, t)
	}
}

// declareVar binds d in scope. A top-level variable may already have been
// bound by a function body reading it during its own initialisation.
func (r *Resolver) declareVar(scope *Scope, d *ast.VarDecl, t *types.Type) {
	sym, ok := scope.Declare(d.Name, t, d.Mutable, d.NameSpan)
	if !ok {
		r.errorf(diagnostic.Redeclaration, d.NameSpan, "conflicting declarations: %s is already declared at %s", d.Name, sym.Span.Start)
	}
	if scope == r.global {
		r.bound[d] = sym
	}
	d.Storage = ast.Storage{Slot: sym.Slot, Global: sym.Global}
	d.Resolved = t
}

// resolveGlobal resolves a top-level declaration in the global scope. It
// runs when the walk reaches it or earlier, when a function body or class
// default refers to it first.
func (r *Resolver) resolveGlobal(d *ast.VarDecl) {
	savedScope, savedCurrent, savedForcing := r.scope, r.current, r.forcing
	r.scope, r.current, r.forcing = r.global, nil, d
	r.globalState[d] = funcResolving

	r.resolveVarDecl(d)

	r.globalState[d] = funcDone
	r.scope, r.current, r.forcing = savedScope, savedCurrent, savedForcing
}

// forceGlobal resolves the pending top-level declaration of name when the
// current context may see it: any function body or class default, or the
// initialiser of an earlier-forced global for declarations above it. A body
// that reaches a global still being resolved sees it only when its type is
// declared.
func (r *Resolver) forceGlobal(name string) bool {
	d, ok := r.globals[name]
	if !ok || r.globalState[d] == funcDone {
		return false
	}

	kind := ScopeKindGlobal
	for s := r.scope; s != nil; s = s.Parent {
		if s.Kind != ScopeKindBlock {
			kind = s.Kind
			break
		}
	}
	inBody := kind == ScopeKindFunction || kind == ScopeKindClass
	if !inBody && (r.forcing == nil || !d.NameSpan.Start.Before(r.forcing.NameSpan.Start)) {
		return false
	}

	if r.globalState[d] == funcResolving {
		if !inBody || d.DeclaredType == nil {
			r.errorf(diagnostic.UnresolvedSymbol, d.NameSpan,
				"type of %s depends on its own initializer; specify the type explicitly", name)
		}
		r.declareVar(r.global, d, r.resolveTypeRef(d.DeclaredType))
		return true
	}

	r.resolveGlobal(d)
	return true
}

// resolveFunction resolves a function body in a scope nested directly in
// the global scope. It runs at the declaration or, for a call that needs an
// inferred return type, at the first such call.
func (r *Resolver) resolveFunction(fn *function) {
	decl := fn.decl
	fn.state = funcResolving

	savedScope, savedCurrent := r.scope, r.current
	frame := &Frame{}
	r.scope = NewScope(ScopeKindFunction, r.global, frame)
	r.current = fn

	for i, p := range decl.Parameters {
		sym, ok := r.scope.Declare(p.Name, fn.params[i], false, p.Span)
		if !ok {
			r.errorf(diagnostic.Redeclaration, p.Span, "parameter %s is already declared at %s", p.Name, sym.Span.Start)
		}
		p.Slot = sym.Slot
	}

	r.resolveBlock(decl.Body, false)

	if decl.Return == nil {
		decl.Return = types.Unit
	}
	if decl.Return != types.Unit && !terminates(decl.Body) {
		r.errorf(diagnostic.ReturnTypeMismatch, decl.NameSpan, "missing return in function %s returning %s", decl.Name, decl.Return)
	}
	decl.FrameSize = frame.Size()

	r.scope, r.current = savedScope, savedCurrent
	fn.state = funcDone
}

// resolveFieldDefaults checks default values against their field types. The
// defaults are evaluated in their own frame at every construction.
func (r *Resolver) resolveFieldDefaults(cd *ast.ClassDecl) {
	savedScope, savedCurrent := r.scope, r.current
	frame := &Frame{}
	r.scope = NewScope(ScopeKindClass, r.global, frame)
	r.current = nil

	for _, fd := range cd.Fields {
		r.resolveExpr(fd.Default, true)
		r.expectAssignable(diagnostic.TypeMismatch, fd.Default, fd.Field.Type)
	}
	cd.FrameSize = frame.Size()

	r.scope, r.current = savedScope, savedCurrent
}

func (r *Resolver) resolveAssignment(a *ast.Assignment) {
	var target *types.Type

	switch t := a.Target.(type) {
	case *ast.Identifier:
		sym := r.lookupVariable(t)
		if !sym.Mutable {
			r.errorf(diagnostic.ImmutableAssignment, t.Span, "val cannot be reassigned: %s", t.Name)
		}
		target = sym.Type
	case *ast.MemberExpr:
		field := r.resolveMember(t)
		if !field.Mutable {
			r.errorf(diagnostic.ImmutableAssignment, t.FieldSpan, "val cannot be reassigned: %s.%s", t.Receiver, t.Field)
		}
		target = field.Type
	default:
		r.errorf(diagnostic.TypeMismatch, a.Target.GetSpan(), "invalid assignment target %s", a.Target)
	}

	r.resolveExpr(a.Value, true)
	r.expectAssignable(diagnostic.TypeMismatch, a.Value, target)
}

func (r *Resolver) resolveReturn(ret *ast.ReturnStmt) {
	if r.current == nil {
		r.errorf(diagnostic.IllegalReturn, ret.Span, "'return' is not allowed here")
	}
	decl := r.current.decl
	ret.Function = decl

	t := types.Unit
	if ret.Value != nil {
		t = r.resolveExpr(ret.Value, true)
	}

	switch {
	case decl.Return == nil:
		// The first return fixes an elided return type.
		decl.Return = t
	case ret.Value == nil:
		if decl.Return != types.Unit {
			r.errorf(diagnostic.ReturnTypeMismatch, ret.Span, "this function must return a value of type %s", decl.Return)
		}
	case !assignable(ret.Value, decl.Return):
		r.errorf(diagnostic.ReturnTypeMismatch, ret.Value.GetSpan(), "type mismatch: inferred type is %s but %s was expected", t, decl.Return)
	}
}

// terminates reports whether stmt returns on every path.
func terminates(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.Block:
		for _, inner := range s.Statements {
			if terminates(inner) {
				return true
			}
		}
	case *ast.ExprStmt:
		if ife, ok := s.Expr.(*ast.IfExpr); ok && ife.Else != nil {
			return terminates(ife.Then) && terminates(ife.Else)
		}
	}
	return false
}
