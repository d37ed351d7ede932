package testrunner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/position"
)

func createSpan() position.Span {
	start := position.Position{Line: 1, Column: 1}
	return position.Span{Start: start, End: position.Position{Line: 1, Column: 2, Offset: 1}}
}

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSuiteRun(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"pass.kts":        "println(1 + 1) // expect: 2\n",
		"main.kt":         "println(\"top\") // expect: top\nfun main() {\n  println(\"main\") // expect: main\n}\n",
		"nested/div.kts":  "// expect-error: DivisionByZero\nval z = 0\nprintln(\"a\") // expect: a\nprintln(1 / z)\n",
		"wrong.kts":       "println(3) // expect: 4\n",
		"slow.kts":        "// slow\nprintln(1) // expect: 1\n",
		"notes.txt":       "ignored",
		"compile_err.kts": "// expect-error: TypeMismatch\nval x: Int = \"s\"\n",
	})

	var out bytes.Buffer
	suite := NewSuite(Options{Paths: []string{dir}, Parallel: 2, Short: true})
	res, err := suite.Run(context.Background(), &out)
	if !errors.Is(err, ErrFailures) {
		t.Fatalf("Expected ErrFailures, got %v", err)
	}

	if res.Total != 6 || res.Passed != 4 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("Unexpected totals %+v\n%s", res, out.String())
	}

	for _, fr := range res.Files {
		if filepath.Base(fr.Path) == "wrong.kts" {
			if len(fr.Mismatches) != 1 || !strings.Contains(fr.Mismatches[0], `expected "4", got "3"`) {
				t.Errorf("Unexpected mismatches %q", fr.Mismatches)
			}
		}
	}

	report := out.String()
	if !strings.Contains(report, "SUMMARY: 6 scripts") || !strings.Contains(report, "wrong.kts") {
		t.Errorf("Unexpected report:\n%s", report)
	}
	if strings.Contains(report, "\x1b[") {
		t.Error("Expected no colour codes without Color")
	}
}

func TestSuitePattern(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"a.kts": "println(1) // expect: 1\n",
		"b.kts": "println(1) // expect: 2\n",
	})

	res, err := NewSuite(Options{Paths: []string{dir}, Pattern: `a\.kts$`}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Total != 1 || res.Passed != 1 {
		t.Errorf("Expected only a.kts to run, got %+v", res)
	}

	if _, err := NewSuite(Options{Paths: []string{dir}, Pattern: "("}).Run(context.Background(), nil); err == nil {
		t.Error("Expected an invalid pattern error")
	}
}

func TestSuiteJUnit(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"ok.kts":  "println(\"<&>\") // expect: <&>\n",
		"bad.kts": "println(1) // expect: 2\n",
	})
	junit := filepath.Join(t.TempDir(), "report.xml")

	_, err := NewSuite(Options{Paths: []string{dir}, JUnitPath: junit}).Run(context.Background(), nil)
	if !errors.Is(err, ErrFailures) {
		t.Fatalf("Expected ErrFailures, got %v", err)
	}

	data, err := os.ReadFile(junit)
	if err != nil {
		t.Fatal(err)
	}
	xml := string(data)
	for _, want := range []string{`tests="2"`, `failures="1"`, "<failure message=", "&lt;&amp;&gt;"} {
		if !strings.Contains(xml, want) {
			t.Errorf("JUnit report missing %q:\n%s", want, xml)
		}
	}
}

func TestCheck(t *testing.T) {
	div := diagnostic.New(diagnostic.DivisionByZero, createSpan(), "division by zero")

	tests := []struct {
		name     string
		exp      Expectation
		output   []string
		err      error
		problems int
	}{
		{"match", Expectation{Lines: []string{"1"}}, []string{"1"}, nil, 0},
		{"extra_line", Expectation{Lines: []string{"1"}}, []string{"1", "2"}, nil, 1},
		{"missing_line", Expectation{Lines: []string{"1", "2"}}, []string{"1"}, nil, 1},
		{"unexpected_error", Expectation{}, nil, div, 1},
		{"expected_error", Expectation{Error: diagnostic.DivisionByZero}, nil, div, 0},
		{"wrong_error", Expectation{Error: diagnostic.StackOverflow}, nil, div, 1},
		{"missing_error", Expectation{Error: diagnostic.StackOverflow}, nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.exp, tt.output, tt.err); len(got) != tt.problems {
				t.Errorf("Expected %d problems, got %q", tt.problems, got)
			}
		})
	}
}
