package diagnostic

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gaultier/microkt/internal/position"
)

func span(line, col, length int) position.Span {
	return position.Span{
		Start: position.Position{Line: line, Column: col, Offset: col - 1},
		End:   position.Position{Line: line, Column: col + length, Offset: col - 1 + length},
	}
}

func TestKindPhases(t *testing.T) {
	tests := []struct {
		kind  Kind
		phase Phase
	}{
		{LexError, PhaseLex},
		{ParseError, PhaseParse},
		{UnresolvedSymbol, PhaseResolve},
		{ImmutableAssignment, PhaseResolve},
		{ReturnTypeMismatch, PhaseResolve},
		{IllegalReturn, PhaseResolve},
		{DivisionByZero, PhaseRuntime},
		{StackOverflow, PhaseRuntime},
		{UninitializedVariable, PhaseRuntime},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Phase(); got != tt.phase {
				t.Errorf("Expected phase %s, got %s", tt.phase, got)
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(TypeMismatch, span(1, 1, 3), "bad"))

	if !errors.Is(err, TypeMismatch) {
		t.Error("Expected errors.Is to match the kind through wrapping")
	}
	if errors.Is(err, ArgumentMismatch) {
		t.Error("Expected errors.Is not to match a different kind")
	}
	if !IsCompileError(err) || IsRuntimeError(err) {
		t.Error("TypeMismatch should be a compile error")
	}

	rt := New(DivisionByZero, span(2, 5, 1), "division by zero")
	if !IsRuntimeError(rt) || IsCompileError(rt) {
		t.Error("DivisionByZero should be a runtime error")
	}
}

func TestErrorString(t *testing.T) {
	err := New(UnresolvedSymbol, span(4, 9, 1), "unresolved reference 'x'")
	want := "4:9: resolve error: [UnresolvedSymbol] unresolved reference 'x'"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestNewParseError(t *testing.T) {
	err := NewParseError(span(1, 3, 1), []string{"')'", "','"}, "'}'")
	if err.Message != "expected ')' or ',', found '}'" {
		t.Errorf("Unexpected message %q", err.Message)
	}
	if len(err.Expected) != 2 || err.Found != "'}'" {
		t.Errorf("Expected/Found not recorded: %+v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind(" ImmutableAssignment "); !ok || k != ImmutableAssignment {
		t.Errorf("Expected ImmutableAssignment, got %q %v", k, ok)
	}
	if _, ok := ParseKind("Nope"); ok {
		t.Error("Unknown kinds should not parse")
	}
}

func TestRender(t *testing.T) {
	src := position.NewSourceFile("demo.kts", "val a: Int = 1\na = 2\n")
	err := New(ImmutableAssignment, span(2, 1, 1), "val cannot be reassigned")

	var buf bytes.Buffer
	Render(&buf, err, src, false)

	out := buf.String()
	if !strings.HasPrefix(out, "demo.kts:2:1: resolve error: [ImmutableAssignment] val cannot be reassigned\n") {
		t.Errorf("Unexpected header: %q", out)
	}
	if !strings.Contains(out, "   2 | a = 2\n     | ^\n") {
		t.Errorf("Missing snippet: %q", out)
	}

	buf.Reset()
	Render(&buf, err, src, true)
	if !strings.Contains(buf.String(), ansiRed+"^"+ansiReset) {
		t.Errorf("Expected coloured carets: %q", buf.String())
	}

	buf.Reset()
	Render(&buf, errors.New("plain"), nil, false)
	if buf.String() != "error: plain\n" {
		t.Errorf("Unexpected plain rendering %q", buf.String())
	}
}
