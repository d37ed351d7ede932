// Package testrunner runs microkt scripts annotated with expectation
// comments and reports which ones match.
//
// A script states its expected output with line comments:
//
//	println(1) // expect: 1
//	// expect-error: DivisionByZero
//	// slow
//
// Every "expect:" comment, in source order, is one printed line. An
// "expect-error:" comment names the diagnostic kind the run must fail with.
// Scripts marked "slow" are skipped in short mode.
package testrunner

import (
	"fmt"
	"strings"

	"github.com/gaultier/microkt/internal/diagnostic"
)

const (
	expectPrefix      = "expect:"
	expectErrorPrefix = "expect-error:"
	slowMarker        = "slow"
)

// Expectation is what a script declares about its own run
type Expectation struct {
	Lines []string
	Error diagnostic.Kind // empty when the run must succeed
	Slow  bool
}

// ParseExpectations returns the expected output lines of src.
func ParseExpectations(src string) []string {
	exp, _ := Parse(src)
	return exp.Lines
}

// Parse reads every expectation comment of src. An unknown kind in an
// expect-error comment is an error.
func Parse(src string) (Expectation, error) {
	exp := Expectation{Lines: []string{}}
	for n, line := range strings.Split(src, "\n") {
		comment, ok := lineComment(line)
		if !ok {
			continue
		}

		switch {
		case strings.HasPrefix(comment, expectErrorPrefix):
			name := strings.TrimSpace(strings.TrimPrefix(comment, expectErrorPrefix))
			kind, ok := diagnostic.ParseKind(name)
			if !ok {
				return exp, fmt.Errorf("line %d: unknown error kind %q", n+1, name)
			}
			exp.Error = kind
		case strings.HasPrefix(comment, expectPrefix):
			text := strings.TrimPrefix(comment, expectPrefix)
			exp.Lines = append(exp.Lines, strings.TrimPrefix(strings.TrimRight(text, " \t\r"), " "))
		case comment == slowMarker:
			exp.Slow = true
		}
	}
	return exp, nil
}

// lineComment returns the text after the first "//" that is not inside a
// string or char literal.
func lineComment(line string) (string, bool) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimSpace(line[i+2:]), true
		}
	}
	return "", false
}
