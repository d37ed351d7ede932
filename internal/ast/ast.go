// Package ast defines the abstract syntax tree of microkt programs.
//
// Nodes are produced by the parser and annotated in place by the resolver:
// expressions receive their static type, identifiers their storage slot,
// calls their target and member accesses their field. The interpreter only
// reads annotated trees.
package ast

import (
	"fmt"
	"strings"

	"github.com/gaultier/microkt/internal/position"
	"github.com/gaultier/microkt/internal/types"
)

// Node is the base interface for all AST nodes
type Node interface {
	// GetSpan returns the source span covered by this node
	GetSpan() position.Span
	// String returns a source-like representation of the node
	String() string
}

// Statement represents all statement nodes in the AST
type Statement interface {
	Node
	statementNode()
}

// Expression represents all expression nodes in the AST
type Expression interface {
	Node
	expressionNode()
	// ResolvedType is the static type assigned by the resolver, or nil.
	ResolvedType() *types.Type
}

// Typed carries the static type of an expression.
type Typed struct {
	Type *types.Type
}

func (t *Typed) ResolvedType() *types.Type { return t.Type }

// Storage locates a variable: a slot in the global frame or in the frame of
// the enclosing function call.
type Storage struct {
	Slot   int
	Global bool
}

// ===== Program Structure =====

// Program represents the root of the AST
type Program struct {
	Span       position.Span
	Statements []Statement

	// Filled by the resolver.
	Functions   []*FunctionDecl // every function, hoisted from any depth
	Classes     []*ClassDecl
	GlobalTypes []*types.Type // type of each global slot, for zero initialisation
	Entry       *FunctionDecl // entry point, when one was requested
}

func (p *Program) GetSpan() position.Span { return p.Span }
func (p *Program) String() string {
	var parts []string
	for _, stmt := range p.Statements {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "\n")
}

// ===== Declarations =====

// TypeRef is a type name written in the source
type TypeRef struct {
	Span     position.Span
	Name     string
	Resolved *types.Type
}

func (t *TypeRef) GetSpan() position.Span { return t.Span }
func (t *TypeRef) String() string         { return t.Name }

// Parameter represents a function parameter
type Parameter struct {
	Span position.Span
	Name string
	Type *TypeRef
	Slot int
}

func (p *Parameter) GetSpan() position.Span { return p.Span }
func (p *Parameter) String() string         { return fmt.Sprintf("%s: %s", p.Name, p.Type) }

// FunctionDecl represents a function definition
type FunctionDecl struct {
	Span       position.Span
	Name       string
	NameSpan   position.Span
	Parameters []*Parameter
	ReturnType *TypeRef // nil when elided
	Body       *Block

	// Filled by the resolver.
	Return    *types.Type
	FrameSize int
}

func (f *FunctionDecl) GetSpan() position.Span { return f.Span }
func (f *FunctionDecl) statementNode()         {}
func (f *FunctionDecl) String() string {
	var params []string
	for _, p := range f.Parameters {
		params = append(params, p.String())
	}

	ret := ""
	if f.ReturnType != nil {
		ret = ": " + f.ReturnType.String()
	}
	return fmt.Sprintf("fun %s(%s)%s %s", f.Name, strings.Join(params, ", "), ret, f.Body)
}

// FieldDecl is a class member with its default value
type FieldDecl struct {
	Span    position.Span
	Name    string
	Type    *TypeRef
	Default Expression
	Mutable bool

	Field *types.Field
}

func (f *FieldDecl) GetSpan() position.Span { return f.Span }
func (f *FieldDecl) String() string {
	kw := "val"
	if f.Mutable {
		kw = "var"
	}
	return fmt.Sprintf("%s %s: %s = %s", kw, f.Name, f.Type, f.Default)
}

// ClassDecl represents a class declaration
type ClassDecl struct {
	Span     position.Span
	Name     string
	NameSpan position.Span
	Fields   []*FieldDecl

	Resolved *types.Type
	// FrameSize is the number of slots needed to evaluate the field
	// defaults, which may declare block locals.
	FrameSize int
}

func (c *ClassDecl) GetSpan() position.Span { return c.Span }
func (c *ClassDecl) statementNode()         {}
func (c *ClassDecl) String() string {
	if len(c.Fields) == 0 {
		return fmt.Sprintf("class %s {}", c.Name)
	}
	var fields []string
	for _, f := range c.Fields {
		fields = append(fields, f.String())
	}
	return fmt.Sprintf("class %s { %s }", c.Name, strings.Join(fields, "; "))
}

// VarDecl represents a val or var declaration
type VarDecl struct {
	Span         position.Span
	Name         string
	NameSpan     position.Span
	DeclaredType *TypeRef // nil when inferred
	Mutable      bool
	Init         Expression

	Storage
	Resolved *types.Type
}

func (v *VarDecl) GetSpan() position.Span { return v.Span }
func (v *VarDecl) statementNode()         {}
func (v *VarDecl) String() string {
	kw := "val"
	if v.Mutable {
		kw = "var"
	}
	typ := ""
	if v.DeclaredType != nil {
		typ = ": " + v.DeclaredType.String()
	}
	return fmt.Sprintf("%s %s%s = %s", kw, v.Name, typ, v.Init)
}

// ===== Statements =====

// Block is a brace-delimited statement list with its own scope. Used as an
// if branch, its value is that of its final expression statement.
type Block struct {
	Span       position.Span
	Statements []Statement
}

func (b *Block) GetSpan() position.Span { return b.Span }
func (b *Block) statementNode()         {}
func (b *Block) String() string {
	if len(b.Statements) == 0 {
		return "{}"
	}
	var parts []string
	for _, stmt := range b.Statements {
		parts = append(parts, stmt.String())
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// ExprStmt is an expression evaluated for its effects
type ExprStmt struct {
	Span position.Span
	Expr Expression
}

func (e *ExprStmt) GetSpan() position.Span { return e.Span }
func (e *ExprStmt) statementNode()         {}
func (e *ExprStmt) String() string         { return e.Expr.String() }

// Assignment stores a value into a variable or a field
type Assignment struct {
	Span   position.Span
	Target Expression // *Identifier or *MemberExpr
	Value  Expression
}

func (a *Assignment) GetSpan() position.Span { return a.Span }
func (a *Assignment) statementNode()         {}
func (a *Assignment) String() string         { return fmt.Sprintf("%s = %s", a.Target, a.Value) }

// ReturnStmt leaves the innermost enclosing function call
type ReturnStmt struct {
	Span  position.Span
	Value Expression // nil for a bare return

	Function *FunctionDecl
}

func (r *ReturnStmt) GetSpan() position.Span { return r.Span }
func (r *ReturnStmt) statementNode()         {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

// ===== Expressions =====

// LiteralKind distinguishes literal payloads
type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralBoolean
	LiteralChar
	LiteralString
)

// Literal is a constant written in the source
type Literal struct {
	Span   position.Span
	Kind   LiteralKind
	Int    int64  // integers and the code unit of chars
	Bool   bool   // booleans
	Text   string // strings and chars
	Suffix string // "L" on Long integer literals

	Typed
}

func (l *Literal) GetSpan() position.Span { return l.Span }
func (l *Literal) expressionNode()        {}
func (l *Literal) String() string {
	switch l.Kind {
	case LiteralBoolean:
		return fmt.Sprintf("%t", l.Bool)
	case LiteralChar:
		return fmt.Sprintf("'%s'", l.Text)
	case LiteralString:
		return fmt.Sprintf("%q", l.Text)
	default:
		return fmt.Sprintf("%d%s", l.Int, l.Suffix)
	}
}

// Identifier references a variable, function or class by name
type Identifier struct {
	Span position.Span
	Name string

	Typed
	Storage
}

func (i *Identifier) GetSpan() position.Span { return i.Span }
func (i *Identifier) expressionNode()        {}
func (i *Identifier) String() string         { return i.Name }

// Operator enumerates unary and binary operators
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
)

var operatorText = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||", OpNeg: "-", OpNot: "!",
}

func (o Operator) String() string {
	if int(o) < len(operatorText) {
		return operatorText[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// IsComparison reports whether the operator yields a Boolean from two
// ordered or equatable operands.
func (o Operator) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// BinaryExpr applies an infix operator
type BinaryExpr struct {
	Span     position.Span
	Operator Operator
	Left     Expression
	Right    Expression

	Typed
	// OperandType is the promoted type both operands are converted to.
	OperandType *types.Type
}

func (b *BinaryExpr) GetSpan() position.Span { return b.Span }
func (b *BinaryExpr) expressionNode()        {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Operator, b.Right)
}

// UnaryExpr applies a prefix operator
type UnaryExpr struct {
	Span     position.Span
	Operator Operator
	Operand  Expression

	Typed
}

func (u *UnaryExpr) GetSpan() position.Span { return u.Span }
func (u *UnaryExpr) expressionNode()        {}
func (u *UnaryExpr) String() string         { return fmt.Sprintf("(%s%s)", u.Operator, u.Operand) }

// IfExpr is both an expression and, inside an ExprStmt, a statement. Each
// branch is a *Block or a single statement.
type IfExpr struct {
	Span      position.Span
	Condition Expression
	Then      Statement
	Else      Statement // nil when omitted

	Typed
}

func (i *IfExpr) GetSpan() position.Span { return i.Span }
func (i *IfExpr) expressionNode()        {}
func (i *IfExpr) String() string {
	if i.Else == nil {
		return fmt.Sprintf("if (%s) %s", i.Condition, i.Then)
	}
	return fmt.Sprintf("if (%s) %s else %s", i.Condition, i.Then, i.Else)
}

// CallTarget says what a call invokes once resolved
type CallTarget int

const (
	CallUnresolved CallTarget = iota
	CallFunction
	CallConstructor
	CallPrintln
)

// CallExpr invokes a function, constructs a class instance or prints
type CallExpr struct {
	Span      position.Span
	Callee    Expression
	Arguments []Expression

	Typed
	Target   CallTarget
	Function *FunctionDecl
	Class    *ClassDecl
}

func (c *CallExpr) GetSpan() position.Span { return c.Span }
func (c *CallExpr) expressionNode()        {}
func (c *CallExpr) String() string {
	var args []string
	for _, a := range c.Arguments {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}

// MemberExpr reads (or, as an assignment target, writes) a field
type MemberExpr struct {
	Span      position.Span
	Receiver  Expression
	Field     string
	FieldSpan position.Span

	Typed
	Resolved *types.Field
}

func (m *MemberExpr) GetSpan() position.Span { return m.Span }
func (m *MemberExpr) expressionNode()        {}
func (m *MemberExpr) String() string         { return fmt.Sprintf("%s.%s", m.Receiver, m.Field) }
