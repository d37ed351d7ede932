package lexer

import (
	"fmt"

	"github.com/gaultier/microkt/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier
	TokenInteger
	TokenString
	TokenChar
	TokenBool

	// Keywords
	TokenFun
	TokenVal
	TokenVar
	TokenIf
	TokenElse
	TokenReturn
	TokenClass

	// Operators
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenAnd
	TokenOr
	TokenNot

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenColon
	TokenDot
	TokenSemicolon
)

// Token represents a lexical token with position information
type Token struct {
	Type    TokenType
	Literal string // identifier text, integer digits, decoded char/string content
	Suffix  string // "L" for Long integer literals
	Span    position.Span

	// NewlineBefore is set when at least one line break separates this token
	// from the previous one. The parser uses it to terminate statements.
	NewlineBefore bool
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal+t.Suffix, t.Span.Start.Line, t.Span.Start.Column)
}

// Is reports whether the token has any of the given types.
func (t Token) Is(types ...TokenType) bool {
	for _, tt := range types {
		if t.Type == tt {
			return true
		}
	}
	return false
}

var tokenNames = map[TokenType]string{
	TokenEOF:   "EOF",
	TokenError: "ERROR",

	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenString:     "STRING",
	TokenChar:       "CHAR",
	TokenBool:       "BOOL",

	TokenFun:    "FUN",
	TokenVal:    "VAL",
	TokenVar:    "VAR",
	TokenIf:     "IF",
	TokenElse:   "ELSE",
	TokenReturn: "RETURN",
	TokenClass:  "CLASS",

	TokenPlus:   "+",
	TokenMinus:  "-",
	TokenMul:    "*",
	TokenDiv:    "/",
	TokenMod:    "%",
	TokenAssign: "=",
	TokenEq:     "==",
	TokenNe:     "!=",
	TokenLt:     "<",
	TokenLe:     "<=",
	TokenGt:     ">",
	TokenGe:     ">=",
	TokenAnd:    "&&",
	TokenOr:     "||",
	TokenNot:    "!",

	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenComma:     ",",
	TokenColon:     ":",
	TokenDot:       ".",
	TokenSemicolon: ";",
}

// Describe renders a token type for "expected ..." messages.
func (tt TokenType) Describe() string {
	switch tt {
	case TokenEOF:
		return "end of file"
	case TokenIdentifier:
		return "identifier"
	case TokenInteger:
		return "integer literal"
	case TokenString:
		return "string literal"
	case TokenChar:
		return "character literal"
	case TokenBool:
		return "boolean literal"
	}
	if name, ok := tokenNames[tt]; ok && tt >= TokenFun && tt <= TokenClass {
		return "'" + keywordText[tt] + "'"
	} else if ok {
		return "'" + name + "'"
	}
	return tt.String()
}

var keywords = map[string]TokenType{
	"fun":    TokenFun,
	"val":    TokenVal,
	"var":    TokenVar,
	"if":     TokenIf,
	"else":   TokenElse,
	"return": TokenReturn,
	"class":  TokenClass,
	"true":   TokenBool,
	"false":  TokenBool,
}

var keywordText = map[TokenType]string{
	TokenFun:    "fun",
	TokenVal:    "val",
	TokenVar:    "var",
	TokenIf:     "if",
	TokenElse:   "else",
	TokenReturn: "return",
	TokenClass:  "class",
}

// lookupIdent checks if identifier is keyword
func lookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}
