package resolver

import (
	"github.com/gaultier/microkt/internal/position"
	"github.com/gaultier/microkt/internal/types"
)

// ScopeKind represents the kind of scope
type ScopeKind int

const (
	ScopeKindGlobal   ScopeKind = iota // top-level statements
	ScopeKindFunction                  // function parameters
	ScopeKindClass                     // class field defaults
	ScopeKindBlock                     // braces
)

// String returns the string representation of a ScopeKind
func (sk ScopeKind) String() string {
	switch sk {
	case ScopeKindGlobal:
		return "global"
	case ScopeKindFunction:
		return "function"
	case ScopeKindClass:
		return "class"
	case ScopeKindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Symbol represents a variable or parameter binding
type Symbol struct {
	Name    string
	Type    *types.Type
	Mutable bool
	Slot    int
	Global  bool
	Span    position.Span
}

// Frame allocates the slots of one activation: the global frame, a function
// call or a class initialiser. Slots are never reused.
type Frame struct {
	Global bool
	Types  []*types.Type
}

// Allocate reserves the next slot for a value of type t.
func (f *Frame) Allocate(t *types.Type) int {
	f.Types = append(f.Types, t)
	return len(f.Types) - 1
}

// Size returns the number of allocated slots
func (f *Frame) Size() int { return len(f.Types) }

// Scope represents a lexical scope
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	Frame   *Frame
	symbols map[string]*Symbol
}

// NewScope creates a scope. Block scopes share the frame of their parent.
func NewScope(kind ScopeKind, parent *Scope, frame *Frame) *Scope {
	if frame == nil && parent != nil {
		frame = parent.Frame
	}
	return &Scope{
		Kind:    kind,
		Parent:  parent,
		Frame:   frame,
		symbols: make(map[string]*Symbol),
	}
}

// Declare allocates a slot for name in this scope. It returns the previous
// symbol and false when the name is already declared in this very scope.
func (s *Scope) Declare(name string, t *types.Type, mutable bool, span position.Span) (*Symbol, bool) {
	if prev, exists := s.LookupLocal(name); exists {
		return prev, false
	}
	sym := &Symbol{
		Name:    name,
		Type:    t,
		Mutable: mutable,
		Slot:    s.Frame.Allocate(t),
		Global:  s.Frame.Global,
		Span:    span,
	}
	s.symbols[name] = sym
	return sym, true
}

// Lookup finds the innermost symbol with the given name
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal finds a symbol declared directly in this scope
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}
