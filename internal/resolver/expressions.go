package resolver

import (
	"math"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/types"
)

const builtinPrintln = "println"

// resolveExpr assigns a static type to e and its subexpressions. used is
// false for an expression statement, whose value is discarded.
func (r *Resolver) resolveExpr(e ast.Expression, used bool) *types.Type {
	switch n := e.(type) {
	case *ast.Literal:
		n.Type = literalType(n)
		return n.Type

	case *ast.Identifier:
		return r.lookupVariable(n).Type

	case *ast.UnaryExpr:
		n.Type = r.resolveUnary(n)
		return n.Type

	case *ast.BinaryExpr:
		n.Type = r.resolveBinary(n)
		return n.Type

	case *ast.IfExpr:
		n.Type = r.resolveIf(n, used)
		return n.Type

	case *ast.CallExpr:
		n.Type = r.resolveCall(n)
		return n.Type

	case *ast.MemberExpr:
		return r.resolveMember(n).Type
	}

	r.errorf(diagnostic.TypeMismatch, e.GetSpan(), "unsupported expression %s", e)
	return nil
}

func literalType(l *ast.Literal) *types.Type {
	switch l.Kind {
	case ast.LiteralBoolean:
		return types.Boolean
	case ast.LiteralChar:
		return types.Char
	case ast.LiteralString:
		return types.String
	}
	if l.Suffix == "L" || l.Int > math.MaxInt32 || l.Int < math.MinInt32 {
		return types.Long
	}
	return types.Int
}

func (r *Resolver) lookupVariable(id *ast.Identifier) *Symbol {
	sym, ok := r.scope.Lookup(id.Name)
	if !ok && r.forceGlobal(id.Name) {
		sym, ok = r.scope.Lookup(id.Name)
	}
	if !ok {
		if _, isFn := r.functions[id.Name]; isFn {
			r.errorf(diagnostic.TypeMismatch, id.Span, "function %s cannot be used as a value", id.Name)
		}
		if _, isClass := r.classes[id.Name]; isClass {
			r.errorf(diagnostic.TypeMismatch, id.Span, "class %s cannot be used as a value", id.Name)
		}
		r.errorf(diagnostic.UnresolvedSymbol, id.Span, "unresolved reference: %s", id.Name)
	}
	id.Type = sym.Type
	id.Storage = ast.Storage{Slot: sym.Slot, Global: sym.Global}
	return sym
}

func (r *Resolver) resolveUnary(u *ast.UnaryExpr) *types.Type {
	t := r.resolveExpr(u.Operand, true)
	switch {
	case u.Operator == ast.OpNeg && t.IsIntegral():
		return t
	case u.Operator == ast.OpNot && t == types.Boolean:
		return types.Boolean
	}
	r.errorf(diagnostic.TypeMismatch, u.Span, "operator %s cannot be applied to %s", u.Operator, t)
	return nil
}

func (r *Resolver) resolveBinary(b *ast.BinaryExpr) *types.Type {
	lt := r.resolveExpr(b.Left, true)
	rt := r.resolveExpr(b.Right, true)
	integral := lt.IsIntegral() && rt.IsIntegral()

	switch b.Operator {
	case ast.OpAnd, ast.OpOr:
		if lt == types.Boolean && rt == types.Boolean {
			b.OperandType = types.Boolean
			return types.Boolean
		}

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if b.Operator == ast.OpAdd && lt == types.String {
			b.OperandType = types.String
			return types.String
		}
		if integral {
			b.OperandType = types.Wider(lt, rt)
			return b.OperandType
		}

	default:
		if !b.Operator.IsComparison() {
			break
		}
		equality := b.Operator == ast.OpEq || b.Operator == ast.OpNe
		switch {
		case integral:
			b.OperandType = types.Wider(lt, rt)
			return types.Boolean
		case lt == rt && equality && lt != types.Nothing,
			lt == rt && (lt == types.Char || lt == types.String):
			b.OperandType = lt
			return types.Boolean
		}
	}

	r.errorf(diagnostic.TypeMismatch, b.Span, "operator %s cannot be applied to %s and %s", b.Operator, lt, rt)
	return nil
}

func (r *Resolver) resolveIf(e *ast.IfExpr, used bool) *types.Type {
	if ct := r.resolveExpr(e.Condition, true); ct != types.Boolean {
		r.errorf(diagnostic.TypeMismatch, e.Condition.GetSpan(), "condition must be of type Boolean, found %s", ct)
	}

	if !used {
		r.resolveBranch(e.Then, false)
		if e.Else != nil {
			r.resolveBranch(e.Else, false)
		}
		return types.Unit
	}

	if e.Else == nil {
		r.errorf(diagnostic.TypeMismatch, e.Span, "'if' must have both main and 'else' branches if used as an expression")
	}
	tt := r.resolveBranch(e.Then, true)
	et := r.resolveBranch(e.Else, true)
	t, ok := types.Unify(tt, et)
	if !ok {
		r.errorf(diagnostic.TypeMismatch, e.Span, "'if' branches have incompatible types %s and %s", tt, et)
	}
	return t
}

func (r *Resolver) resolveCall(c *ast.CallExpr) *types.Type {
	id, ok := c.Callee.(*ast.Identifier)
	if !ok {
		r.errorf(diagnostic.TypeMismatch, c.Callee.GetSpan(), "expression %s cannot be invoked as a function", c.Callee)
	}

	for _, arg := range c.Arguments {
		r.resolveExpr(arg, true)
	}

	if fn, ok := r.functions[id.Name]; ok {
		decl := fn.decl
		if len(c.Arguments) != len(fn.params) {
			r.errorf(diagnostic.ArgumentMismatch, c.Span, "function %s expects %d arguments, got %d", decl.Name, len(fn.params), len(c.Arguments))
		}
		for i, arg := range c.Arguments {
			r.expectAssignable(diagnostic.ArgumentMismatch, arg, fn.params[i])
		}
		c.Target, c.Function = ast.CallFunction, decl
		return r.returnTypeOf(fn, c)
	}

	if cd, ok := r.classes[id.Name]; ok {
		if len(c.Arguments) > 0 {
			r.errorf(diagnostic.ArgumentMismatch, c.Span, "constructor of %s expects no arguments, got %d", cd.Name, len(c.Arguments))
		}
		c.Target, c.Class = ast.CallConstructor, cd
		return cd.Resolved
	}

	if id.Name == builtinPrintln {
		if len(c.Arguments) > 1 {
			r.errorf(diagnostic.ArgumentMismatch, c.Span, "println expects at most 1 argument, got %d", len(c.Arguments))
		}
		c.Target = ast.CallPrintln
		return types.Unit
	}

	if _, isVar := r.scope.Lookup(id.Name); isVar {
		r.errorf(diagnostic.TypeMismatch, id.Span, "%s is not a function", id.Name)
	}
	r.errorf(diagnostic.UnresolvedSymbol, id.Span, "unresolved reference: %s", id.Name)
	return nil
}

// returnTypeOf returns the return type of a called function, resolving the
// body first when the type is elided and not yet known.
func (r *Resolver) returnTypeOf(fn *function, c *ast.CallExpr) *types.Type {
	if fn.decl.Return != nil {
		return fn.decl.Return
	}
	if fn.state == funcPending {
		r.resolveFunction(fn)
		return fn.decl.Return
	}
	r.errorf(diagnostic.ReturnTypeMismatch, c.Span,
		"type of %s cannot be inferred before its first return; specify the return type explicitly", fn.decl.Name)
	return nil
}

func (r *Resolver) resolveMember(m *ast.MemberExpr) *types.Field {
	rt := r.resolveExpr(m.Receiver, true)
	if !rt.IsClass() {
		r.errorf(diagnostic.TypeMismatch, m.Receiver.GetSpan(), "type %s has no field %s", rt, m.Field)
	}
	field, ok := rt.Class.Field(m.Field)
	if !ok {
		r.errorf(diagnostic.UnknownField, m.FieldSpan, "class %s has no field %s", rt, m.Field)
	}
	m.Type, m.Resolved = field.Type, field
	return field
}

func (r *Resolver) expectAssignable(kind diagnostic.Kind, e ast.Expression, to *types.Type) {
	if !assignable(e, to) {
		r.errorf(kind, e.GetSpan(), "type mismatch: inferred type is %s but %s was expected", e.ResolvedType(), to)
	}
}

// assignable reports whether the resolved expression e may be stored into a
// slot of type to: by widening, as an integer constant within range, or as
// an if whose every branch value is assignable.
func assignable(e ast.Expression, to *types.Type) bool {
	if types.Widens(e.ResolvedType(), to) {
		return true
	}
	if v, ok := integerConstant(e); ok && to.Contains(v) {
		return true
	}
	if ife, ok := e.(*ast.IfExpr); ok && ife.Else != nil {
		return branchAssignable(ife.Then, to) && branchAssignable(ife.Else, to)
	}
	return false
}

func branchAssignable(stmt ast.Statement, to *types.Type) bool {
	switch s := stmt.(type) {
	case *ast.Block:
		if len(s.Statements) > 0 {
			return branchAssignable(s.Statements[len(s.Statements)-1], to)
		}
	case *ast.ExprStmt:
		return assignable(s.Expr, to)
	case *ast.ReturnStmt:
		return true
	}
	return types.Widens(types.Unit, to)
}

// integerConstant returns the value of an unsuffixed integer literal,
// possibly negated.
func integerConstant(e ast.Expression) (int64, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		if n.Kind == ast.LiteralInteger && n.Suffix == "" {
			return n.Int, true
		}
	case *ast.UnaryExpr:
		if lit, ok := n.Operand.(*ast.Literal); ok && n.Operator == ast.OpNeg {
			if v, ok := integerConstant(lit); ok {
				return -v, true
			}
		}
	}
	return 0, false
}
