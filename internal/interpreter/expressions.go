package interpreter

import (
	"fmt"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/runtime"
	"github.com/gaultier/microkt/internal/types"
)

func (in *Interpreter) eval(e ast.Expression, fr *frame) (runtime.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalValue(n), nil

	case *ast.Identifier:
		return in.load(n, fr)

	case *ast.UnaryExpr:
		v, err := in.eval(n.Operand, fr)
		if err != nil {
			return v, err
		}
		if n.Operator == ast.OpNot {
			return runtime.Bool(!v.Truthy()), nil
		}
		return runtime.Integer(n.Type, -v.I), nil

	case *ast.BinaryExpr:
		return in.evalBinary(n, fr)

	case *ast.IfExpr:
		return in.evalIf(n, fr)

	case *ast.CallExpr:
		return in.evalCall(n, fr)

	case *ast.MemberExpr:
		inst, err := in.receiver(n, fr)
		if err != nil {
			return runtime.Unit, err
		}
		return inst.Get(n.Resolved), nil
	}
	return runtime.Unit, fmt.Errorf("unsupported expression %T", e)
}

func literalValue(l *ast.Literal) runtime.Value {
	switch l.Kind {
	case ast.LiteralBoolean:
		return runtime.Bool(l.Bool)
	case ast.LiteralChar:
		return runtime.Char(l.Int)
	case ast.LiteralString:
		return runtime.String(l.Text)
	}
	return runtime.Integer(l.Type, l.Int)
}

func (in *Interpreter) evalBinary(b *ast.BinaryExpr, fr *frame) (runtime.Value, error) {
	l, err := in.eval(b.Left, fr)
	if err != nil {
		return l, err
	}

	// && and || evaluate the right operand only when needed
	switch b.Operator {
	case ast.OpAnd:
		if !l.Truthy() {
			return l, nil
		}
		return in.eval(b.Right, fr)
	case ast.OpOr:
		if l.Truthy() {
			return l, nil
		}
		return in.eval(b.Right, fr)
	}

	r, err := in.eval(b.Right, fr)
	if err != nil {
		return r, err
	}

	if b.OperandType == types.String && b.Operator == ast.OpAdd {
		return runtime.String(l.S + r.String()), nil
	}

	t := b.OperandType
	l, r = l.Convert(t), r.Convert(t)

	switch b.Operator {
	case ast.OpAdd:
		return runtime.Integer(t, l.I+r.I), nil
	case ast.OpSub:
		return runtime.Integer(t, l.I-r.I), nil
	case ast.OpMul:
		return runtime.Integer(t, l.I*r.I), nil
	case ast.OpDiv, ast.OpMod:
		if r.I == 0 {
			return runtime.Unit, diagnostic.New(diagnostic.DivisionByZero, b.Span, "division by zero")
		}
		// Go division truncates toward zero, as Kotlin does.
		if b.Operator == ast.OpDiv {
			return runtime.Integer(t, l.I/r.I), nil
		}
		return runtime.Integer(t, l.I%r.I), nil
	case ast.OpEq:
		return runtime.Bool(l.Equal(r)), nil
	case ast.OpNe:
		return runtime.Bool(!l.Equal(r)), nil
	case ast.OpLt:
		return runtime.Bool(l.Compare(r) < 0), nil
	case ast.OpLe:
		return runtime.Bool(l.Compare(r) <= 0), nil
	case ast.OpGt:
		return runtime.Bool(l.Compare(r) > 0), nil
	case ast.OpGe:
		return runtime.Bool(l.Compare(r) >= 0), nil
	}
	return runtime.Unit, fmt.Errorf("unsupported operator %s", b.Operator)
}

func (in *Interpreter) evalIf(e *ast.IfExpr, fr *frame) (runtime.Value, error) {
	cond, err := in.eval(e.Condition, fr)
	if err != nil {
		return cond, err
	}

	branch := e.Then
	if !cond.Truthy() {
		branch = e.Else
	}
	if branch == nil {
		return runtime.Unit, nil
	}

	v, err := in.evalBranch(branch, fr)
	if err != nil {
		return v, err
	}
	return v.Convert(e.Type), nil
}

// evalBranch runs an if branch and yields its value: the value of a final
// expression statement, Unit otherwise.
func (in *Interpreter) evalBranch(stmt ast.Statement, fr *frame) (runtime.Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return in.eval(s.Expr, fr)
	case *ast.Block:
		for i, inner := range s.Statements {
			if i == len(s.Statements)-1 {
				return in.evalBranch(inner, fr)
			}
			if err := in.exec(inner, fr); err != nil {
				return runtime.Unit, err
			}
		}
		return runtime.Unit, nil
	}
	return runtime.Unit, in.exec(stmt, fr)
}

func (in *Interpreter) evalCall(c *ast.CallExpr, fr *frame) (runtime.Value, error) {
	args := make([]runtime.Value, len(c.Arguments))
	for i, arg := range c.Arguments {
		v, err := in.eval(arg, fr)
		if err != nil {
			return v, err
		}
		args[i] = v
	}

	switch c.Target {
	case ast.CallFunction:
		return in.call(c.Function, args, c.Span)
	case ast.CallConstructor:
		return in.construct(c.Class, c.Span)
	case ast.CallPrintln:
		return runtime.Unit, in.println(args)
	}
	return runtime.Unit, fmt.Errorf("unresolved call %s", c)
}

func (in *Interpreter) receiver(m *ast.MemberExpr, fr *frame) (*runtime.Instance, error) {
	v, err := in.eval(m.Receiver, fr)
	if err != nil {
		return nil, err
	}
	return v.R, nil
}
