// Package diagnostic defines the error taxonomy shared by every phase of the
// microkt pipeline and renders errors for humans.
package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gaultier/microkt/internal/position"
)

// Phase identifies the pipeline stage that produced an error.
type Phase int

const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseResolve
	PhaseRuntime
)

func (p Phase) String() string {
	switch p {
	case PhaseLex:
		return "lex"
	case PhaseParse:
		return "parse"
	case PhaseResolve:
		return "resolve"
	case PhaseRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Kind is the machine-readable error code. Kinds are themselves errors so
// callers can write errors.Is(err, diagnostic.TypeMismatch).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	LexError            Kind = "LexError"
	ParseError          Kind = "ParseError"
	UnresolvedSymbol    Kind = "UnresolvedSymbol"
	ImmutableAssignment Kind = "ImmutableAssignment"
	TypeMismatch        Kind = "TypeMismatch"
	ArgumentMismatch    Kind = "ArgumentMismatch"
	ReturnTypeMismatch  Kind = "ReturnTypeMismatch"
	UnknownField        Kind = "UnknownField"
	IllegalReturn       Kind = "IllegalReturn"
	Redeclaration       Kind = "Redeclaration"
	DivisionByZero      Kind = "DivisionByZero"
	StackOverflow       Kind = "StackOverflow"
	// UninitializedVariable is a read or write of a top-level variable before
	// its declaration ran, through a function called earlier.
	UninitializedVariable Kind = "UninitializedVariable"
)

var kindPhases = map[Kind]Phase{
	LexError:              PhaseLex,
	ParseError:            PhaseParse,
	UnresolvedSymbol:      PhaseResolve,
	ImmutableAssignment:   PhaseResolve,
	TypeMismatch:          PhaseResolve,
	ArgumentMismatch:      PhaseResolve,
	ReturnTypeMismatch:    PhaseResolve,
	UnknownField:          PhaseResolve,
	IllegalReturn:         PhaseResolve,
	Redeclaration:         PhaseResolve,
	DivisionByZero:        PhaseRuntime,
	StackOverflow:         PhaseRuntime,
	UninitializedVariable: PhaseRuntime,
}

// Phase returns the phase a kind belongs to.
func (k Kind) Phase() Phase {
	if p, ok := kindPhases[k]; ok {
		return p
	}
	return PhaseRuntime
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.TrimSpace(name))
	_, ok := kindPhases[k]
	return k, ok
}

// Error is a positioned language error.
type Error struct {
	Kind     Kind
	Span     position.Span
	Message  string
	Expected []string // parse errors: acceptable token kinds
	Found    string   // parse errors: the offending token; lex errors: the char
}

// Phase returns the stage that produced the error.
func (e *Error) Phase() Phase { return e.Kind.Phase() }

func (e *Error) Error() string {
	var b strings.Builder
	if e.Span.Start.IsValid() {
		b.WriteString(e.Span.Start.String())
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s error: [%s] %s", e.Phase(), e.Kind, e.Message)
	return b.String()
}

// Is matches a bare Kind or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	default:
		return false
	}
}

// New creates an error of the given kind.
func New(kind Kind, span position.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// NewParseError creates a parse error listing the token kinds that would have
// been accepted.
func NewParseError(span position.Span, expected []string, found string) *Error {
	msg := fmt.Sprintf("unexpected %s", found)
	if len(expected) > 0 {
		msg = fmt.Sprintf("expected %s, found %s", strings.Join(expected, " or "), found)
	}
	return &Error{Kind: ParseError, Span: span, Message: msg, Expected: expected, Found: found}
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCompileError reports whether err was detected before evaluation.
func IsCompileError(err error) bool {
	de, ok := As(err)
	return ok && de.Phase() != PhaseRuntime
}

// IsRuntimeError reports whether err was raised during evaluation.
func IsRuntimeError(err error) bool {
	de, ok := As(err)
	return ok && de.Phase() == PhaseRuntime
}
