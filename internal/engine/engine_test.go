package engine

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gaultier/microkt/internal/diagnostic"
)

func mustRun(t *testing.T, src string, opts ...Option) []string {
	t.Helper()
	res, err := Run(src, opts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return res.Output
}

func TestRunProperties(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"precedence", "println(800 - 100 / 20)", []string{"795"}},
		{"if_expression", "println(if (false) 1 else { 2 })", []string{"2"}},
		{"else_if_chain", "println(if (1 > 2) 1 else if (2 > 1) 2 else if (true) 3 else 4)", []string{"2"}},
		{"var_reassignment", "var x = 1\nx = 2\nprintln(x)", []string{"2"}},
		{"block_shadowing", "val a = 1\nif (true) {\n if (false) { val d = 2 } else { val d = 3\n println(a + d) }\n}", []string{"4"}},
		{"empty_class", "class E {}\nprintln(E())\nprintln(E())", []string{"Instance of size 0", "Instance of size 0"}},
		{"class_size", "class P {\n var id: Long = 0L\n var age: Int = 0\n}\nprintln(P())\nval p = P()\nprintln(p)", []string{"Instance of size 28", "Instance of size 28"}},
		{"field_update", "class P {\n var id: Long = 0L\n}\nval p = P()\np.id = p.id + 1L\nprintln(p.id)", []string{"1"}},
		{"no_output", "val x = 1", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRun(t, tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	src := "fun f(n: Long): Long {\n if (n < 2L) return n\n return f(n - 1L) + f(n - 2L)\n}\nprintln(f(15L))\nprintln(\"x\" + 'y')"
	first := mustRun(t, src)
	for i := 0; i < 5; i++ {
		if got := mustRun(t, src); !reflect.DeepEqual(got, first) {
			t.Fatalf("Run %d differs: %q vs %q", i, got, first)
		}
	}
}

func TestFibonacci(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fibonacci(35) in short mode")
	}
	src := "fun fibonacci(n: Long): Long {\n if (n == 0L) return 0L\n if (n == 1L) return 1L\n return fibonacci(n-1L) + fibonacci(n-2L)\n}\nfun main() {\n println(fibonacci(35L))\n}"
	got := mustRun(t, src, WithEntryPoint("main"))
	if len(got) != 1 || got[0] != "9227465" {
		t.Errorf("Expected 9227465, got %q", got)
	}
}

func TestCompileErrorsProduceNoOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected diagnostic.Kind
	}{
		{"val_reassignment", "println(1)\nval a = 1\na = 2", diagnostic.ImmutableAssignment},
		{"arity", "fun f(a: Long) { println(\"body\") }\nprintln(1)\nf()", diagnostic.ArgumentMismatch},
		{"argument_type", "fun f(a: Long) { println(\"body\") }\nprintln(1)\nf(\"x\")", diagnostic.ArgumentMismatch},
		{"lex", "println(1)\nval s = \"open", diagnostic.LexError},
		{"parse", "println(1)\nval = 2", diagnostic.ParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(tt.input)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %s, got %v", tt.expected, err)
			}
			if !diagnostic.IsCompileError(err) {
				t.Errorf("Expected a compile error, got %v", err)
			}
			if res == nil || len(res.Output) != 0 {
				t.Errorf("Expected no output, got %+v", res)
			}
		})
	}
}

func TestRuntimeErrorKeepsOutput(t *testing.T) {
	var buf bytes.Buffer
	res, err := Run("println(\"a\")\nval z = 0\nprintln(1 / z)", WithSink(&buf))
	if !errors.Is(err, diagnostic.DivisionByZero) {
		t.Fatalf("Expected DivisionByZero, got %v", err)
	}
	if !reflect.DeepEqual(res.Output, []string{"a"}) {
		t.Errorf("Expected partial output, got %q", res.Output)
	}
	if buf.String() != "a\n" {
		t.Errorf("Expected sink to receive the line, got %q", buf.String())
	}
}

func TestEntryPoint(t *testing.T) {
	got := mustRun(t, "fun main() { println(\"main\") }\nprintln(\"top\")", WithEntryPoint("main"))
	if !reflect.DeepEqual(got, []string{"top", "main"}) {
		t.Errorf("Expected top then main, got %q", got)
	}

	if _, err := Run("println(1)", WithEntryPoint("main")); !errors.Is(err, diagnostic.UnresolvedSymbol) {
		t.Errorf("Expected UnresolvedSymbol for a missing main, got %v", err)
	}
}

func TestMaxCallDepthOption(t *testing.T) {
	src := "fun d(n: Int): Int {\n if (n == 0) return 0\n return d(n - 1)\n}\nprintln(d(20))"
	if _, err := Run(src, WithMaxCallDepth(10)); !errors.Is(err, diagnostic.StackOverflow) {
		t.Errorf("Expected StackOverflow, got %v", err)
	}
	if _, err := Run(src, WithMaxCallDepth(100)); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestLoggerAndFilename(t *testing.T) {
	log := &recordingLogger{}
	res, err := Run("println(1)", WithLogger(log), WithFilename("one.kts"))
	if err != nil {
		t.Fatal(err)
	}
	if len(log.lines) != 3 {
		t.Errorf("Expected parse, resolve and execute timings, got %q", log.lines)
	}
	if res.Source.Filename != "one.kts" || res.Stats.Lines != 1 {
		t.Errorf("Unexpected result %+v", res)
	}

	_, err = Run("val x: Int = true", WithFilename("bad.kts"))
	if err == nil || !strings.HasPrefix(err.Error(), "bad.kts:1:") {
		t.Errorf("Expected the filename in the error, got %v", err)
	}
}

func TestCompile(t *testing.T) {
	program, err := Compile("class A { var x: Int = 1 }\nfun f(): Int { return 1 }")
	if err != nil {
		t.Fatal(err)
	}
	if len(program.Classes) != 1 || len(program.Functions) != 1 {
		t.Errorf("Expected one class and one function, got %d and %d", len(program.Classes), len(program.Functions))
	}
}
