package lexer

import (
	"errors"
	"testing"

	"github.com/gaultier/microkt/internal/diagnostic"
)

func TestBasicTokens(t *testing.T) {
	input := `fun main() {
	println("Hello, microkt!"); // expect: Hello, microkt!
}`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenFun, "fun"},
		{TokenIdentifier, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenIdentifier, "println"},
		{TokenLParen, "("},
		{TokenString, "Hello, microkt!"},
		{TokenRParen, ")"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `fun val var if else return class true false Long`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenFun, "fun"},
		{TokenVal, "val"},
		{TokenVar, "var"},
		{TokenIf, "if"},
		{TokenElse, "else"},
		{TokenReturn, "return"},
		{TokenClass, "class"},
		{TokenBool, "true"},
		{TokenBool, "false"},
		{TokenIdentifier, "Long"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	tokens, err := Tokenize("+ - * / % = == != < <= > >= && || ! ( ) { } , : . ;")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []TokenType{
		TokenPlus, TokenMinus, TokenMul, TokenDiv, TokenMod, TokenAssign,
		TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe, TokenAnd,
		TokenOr, TokenNot, TokenLParen, TokenRParen, TokenLBrace, TokenRBrace,
		TokenComma, TokenColon, TokenDot, TokenSemicolon, TokenEOF,
	}

	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("tokens[%d] - expected %s, got %s", i, tt, tokens[i].Type)
		}
	}
}

func TestIntegerLiterals(t *testing.T) {
	tests := []struct {
		input   string
		literal string
		suffix  string
	}{
		{"42", "42", ""},
		{"10L", "10", "L"},
		{"1_000_000", "1000000", ""},
		{"9223372036854775807L", "9223372036854775807", "L"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tok := tokens[0]
			if tok.Type != TokenInteger || tok.Literal != tt.literal || tok.Suffix != tt.suffix {
				t.Errorf("Expected INTEGER %q%s, got %s %q%s", tt.literal, tt.suffix, tok.Type, tok.Literal, tok.Suffix)
			}
		})
	}
}

func TestCharAndStringLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
		literal  string
	}{
		{`'A'`, TokenChar, "A"},
		{`'%'`, TokenChar, "%"},
		{`'\n'`, TokenChar, "\n"},
		{`'\''`, TokenChar, "'"},
		{`'é'`, TokenChar, "é"},
		{`"You're a wizard, Harry"`, TokenString, "You're a wizard, Harry"},
		{`"tab\there"`, TokenString, "tab\there"},
		{`"\"quoted\" \$x"`, TokenString, `"quoted" $x`},
		{`"keep \q"`, TokenString, `keep \q`},
		{`""`, TokenString, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tokens[0].Type != tt.expected || tokens[0].Literal != tt.literal {
				t.Errorf("Expected %s %q, got %s %q", tt.expected, tt.literal, tokens[0].Type, tokens[0].Literal)
			}
		})
	}
}

func TestComments(t *testing.T) {
	input := `val a = 1 // expect: 1
/* block
   /* nested */ still comment */ val b = 2`

	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	expected := []TokenType{
		TokenVal, TokenIdentifier, TokenAssign, TokenInteger,
		TokenVal, TokenIdentifier, TokenAssign, TokenInteger, TokenEOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("tokens[%d] - expected %s, got %s", i, expected[i], types[i])
		}
	}

	if !tokens[4].NewlineBefore {
		t.Error("Expected second val to be preceded by a newline")
	}
}

func TestNewlineBefore(t *testing.T) {
	tokens, err := Tokenize("a\n  + b c")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []bool{false, true, false, false, false}
	for i, nl := range expected {
		if tokens[i].NewlineBefore != nl {
			t.Errorf("tokens[%d] %s - expected NewlineBefore=%v", i, tokens[i].Type, nl)
		}
	}
}

func TestPositions(t *testing.T) {
	tokens, err := TokenizeFile("val x = 1\n  println(x)", "pos.kts")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tok := tokens[4]
	if tok.Literal != "println" {
		t.Fatalf("Expected println token, got %v", tok)
	}
	if tok.Span.Start.Line != 2 || tok.Span.Start.Column != 3 {
		t.Errorf("Expected 2:3, got %d:%d", tok.Span.Start.Line, tok.Span.Start.Column)
	}
	if tok.Span.End.Column != 10 {
		t.Errorf("Expected end column 10, got %d", tok.Span.End.Column)
	}
	if tok.Span.Start.Filename != "pos.kts" {
		t.Errorf("Expected filename to be recorded, got %q", tok.Span.Start.Filename)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
		found  string
	}{
		{"unknown_char", "val a = 1\nval b = #", 2, 9, "#"},
		{"single_ampersand", "a & b", 1, 3, "&"},
		{"non_ascii", "val π = 3", 1, 5, "π"},
		{"unterminated_string", `println("oops`, 1, 9, `"`},
		{"unterminated_char", "'a", 1, 1, "'"},
		{"empty_char", "''", 1, 1, "'"},
		{"long_char", "'ab'", 1, 1, "'"},
		{"malformed_number", "12abc", 1, 1, "12abc"},
		{"overflow", "9223372036854775808", 1, 1, "9223372036854775808"},
		{"unterminated_comment", "/* never closed", 1, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if !errors.Is(err, diagnostic.LexError) {
				t.Fatalf("Expected LexError, got %v", err)
			}

			de, _ := diagnostic.As(err)
			if de.Span.Start.Line != tt.line || de.Span.Start.Column != tt.column {
				t.Errorf("Expected error at %d:%d, got %s", tt.line, tt.column, de.Span.Start)
			}
			if de.Found != tt.found {
				t.Errorf("Expected found %q, got %q", tt.found, de.Found)
			}
		})
	}
}

func TestErrorIsSticky(t *testing.T) {
	l := New("@ a")
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Fatalf("Expected ERROR, got %s", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Errorf("Expected ERROR after a failure, got %s", tok.Type)
	}
	if l.Err() == nil {
		t.Error("Expected Err to report the failure")
	}
}
