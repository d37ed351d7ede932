package testrunner

import (
	"reflect"
	"testing"

	"github.com/gaultier/microkt/internal/diagnostic"
)

func TestParseExpectations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"none", "println(1)", []string{}},
		{"trailing", "println(1) // expect: 1\nprintln(\"a b\") // expect: a b", []string{"1", "a b"}},
		{"own_line", "call()\n// expect: first\n  // expect: second", []string{"first", "second"}},
		{"empty_line", "println() // expect:", []string{""}},
		{"slashes_in_string", "println(\"http://x\") // expect: http://x", []string{"http://x"}},
		{"quote_in_comment", "println(s) // expect: You're a wizard, Harry", []string{"You're a wizard, Harry"}},
		{"plain_comment", "// not an expectation\nprintln(1)", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseExpectations(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseDirectives(t *testing.T) {
	exp, err := Parse("// slow\n// expect-error: DivisionByZero\nprintln(1) // expect: 1")
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Slow || exp.Error != diagnostic.DivisionByZero || len(exp.Lines) != 1 {
		t.Errorf("Unexpected expectation %+v", exp)
	}

	if _, err := Parse("// expect-error: Kaboom"); err == nil {
		t.Error("Expected an unknown kind to be rejected")
	}
}

func TestLineComment(t *testing.T) {
	tests := []struct {
		line    string
		comment string
		ok      bool
	}{
		{"x // y", "y", true},
		{"'/' // c", "c", true},
		{"\"a\\\"//b\"", "", false},
		{"no comment", "", false},
	}

	for _, tt := range tests {
		got, ok := lineComment(tt.line)
		if got != tt.comment || ok != tt.ok {
			t.Errorf("lineComment(%q): expected %q %v, got %q %v", tt.line, tt.comment, tt.ok, got, ok)
		}
	}
}
