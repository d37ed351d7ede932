// Package lexer implements the microkt lexical analyzer.
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/position"
)

// Lexer turns source text into tokens. It stops at the first error.
type Lexer struct {
	input        string
	filename     string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number

	newline bool // a line break was skipped since the last token
	err     *diagnostic.Error
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer instance with filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		filename: filename,
		line:     1,
	}
	l.readChar()
	return l
}

// Tokenize lexes the whole source. The returned slice always ends with an EOF
// token.
func Tokenize(src string) ([]Token, error) {
	return TokenizeFile(src, "")
}

// TokenizeFile is Tokenize with a filename recorded in every position.
func TokenizeFile(src, filename string) ([]Token, error) {
	l := NewWithFilename(src, filename)
	tokens := make([]Token, 0, len(src)/4+1)
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return nil, l.err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Err returns the error that stopped the lexer, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	// Columns count characters, not UTF-8 continuation bytes.
	if l.ch&0xC0 != 0x80 {
		l.column++
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) eof() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) currentPosition() position.Position {
	return position.Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.position,
	}
}

func (l *Lexer) fail(start position.Position, found, format string, args ...any) {
	if l.err != nil {
		return
	}
	l.err = diagnostic.New(diagnostic.LexError,
		position.Span{Start: start, End: l.currentPosition()}, format, args...)
	l.err.Found = found
}

// skipTrivia skips whitespace and comments, remembering line breaks.
func (l *Lexer) skipTrivia() {
	for !l.eof() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '\n':
			l.newline = true
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && !l.eof() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			if !l.skipBlockComment() {
				return
			}
		default:
			return
		}
	}
}

// skipBlockComment consumes a (possibly nested) /* */ comment.
func (l *Lexer) skipBlockComment() bool {
	start := l.currentPosition()
	l.readChar()
	l.readChar()

	depth := 1
	for depth > 0 {
		switch {
		case l.eof():
			l.fail(start, "", "unterminated block comment")
			return false
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
		case l.ch == '\n':
			l.newline = true
		}
		l.readChar()
	}
	return true
}

// NextToken scans the input and returns the next token. Once an error token
// has been returned every further call returns an error token too.
func (l *Lexer) NextToken() Token {
	if l.err == nil {
		l.skipTrivia()
	}
	start := l.currentPosition()
	if l.err != nil {
		return Token{Type: TokenError, Span: l.err.Span}
	}

	tok := Token{NewlineBefore: l.newline}
	l.newline = false

	switch {
	case l.eof():
		tok.Type = TokenEOF
	case isLetter(l.ch) || l.ch == '_':
		tok.Literal = l.readIdentifier()
		tok.Type = lookupIdent(tok.Literal)
	case isDigit(l.ch):
		tok.Type = TokenInteger
		tok.Literal, tok.Suffix = l.readNumber(start)
	case l.ch == '"':
		tok.Type = TokenString
		tok.Literal = l.readString(start)
	case l.ch == '\'':
		tok.Type = TokenChar
		tok.Literal = l.readCharLiteral(start)
	default:
		tok.Type, tok.Literal = l.readOperator(start)
	}

	if l.err != nil {
		return Token{Type: TokenError, Span: l.err.Span}
	}
	tok.Span = position.Span{Start: start, End: l.currentPosition()}
	return tok
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads a decimal integer with optional '_' separators and an
// optional L suffix. The literal must fit in 64 bits.
func (l *Lexer) readNumber(start position.Position) (string, string) {
	var digits strings.Builder
	for isDigit(l.ch) || (l.ch == '_' && (isDigit(l.peekChar()) || l.peekChar() == '_')) {
		if l.ch != '_' {
			digits.WriteByte(l.ch)
		}
		l.readChar()
	}

	suffix := ""
	if l.ch == 'L' {
		suffix = "L"
		l.readChar()
	}

	if isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		text := l.input[start.Offset:l.position]
		l.fail(start, text, "malformed number literal %q", text)
		return "", ""
	}

	lit := digits.String()
	if _, err := strconv.ParseInt(lit, 10, 64); err != nil {
		l.fail(start, lit, "integer literal %s is out of range", lit)
		return "", ""
	}
	return lit, suffix
}

func (l *Lexer) readString(start position.Position) string {
	var b strings.Builder
	l.readChar() // opening quote

	for {
		switch {
		case l.eof() || l.ch == '\n':
			l.fail(start, "\"", "unterminated string literal")
			return ""
		case l.ch == '"':
			l.readChar()
			return b.String()
		case l.ch == '\\':
			s, ok := l.readEscape()
			if !ok {
				return ""
			}
			b.WriteString(s)
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readCharLiteral(start position.Position) string {
	l.readChar() // opening quote

	var content string
	switch {
	case l.eof() || l.ch == '\n':
		l.fail(start, "'", "unterminated character literal")
		return ""
	case l.ch == '\'':
		l.readChar()
		l.fail(start, "'", "empty character literal")
		return ""
	case l.ch == '\\':
		s, ok := l.readEscape()
		if !ok {
			return ""
		}
		content = s
	default:
		_, size := utf8.DecodeRuneInString(l.input[l.position:])
		content = l.input[l.position : l.position+size]
		for i := 0; i < size; i++ {
			l.readChar()
		}
	}

	if l.ch != '\'' {
		// Scan to a closing quote on this line to tell the two failures apart.
		for l.ch != '\'' && l.ch != '\n' && !l.eof() {
			l.readChar()
		}
		if l.ch == '\'' {
			l.readChar()
			l.fail(start, "'", "too many characters in character literal")
		} else {
			l.fail(start, "'", "unterminated character literal")
		}
		return ""
	}
	l.readChar()

	if utf8.RuneCountInString(content) != 1 {
		l.fail(start, "'", "too many characters in character literal")
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(content); r > 0xFFFF {
		l.fail(start, content, "character %q does not fit in a Char", r)
		return ""
	}
	return content
}

// readEscape decodes the escape sequence at a backslash. Unknown escapes are
// kept verbatim.
func (l *Lexer) readEscape() (string, bool) {
	start := l.currentPosition()
	l.readChar() // backslash

	var s string
	switch l.ch {
	case 'n':
		s = "\n"
	case 't':
		s = "\t"
	case 'r':
		s = "\r"
	case 'b':
		s = "\b"
	case '\\', '\'', '"', '$':
		s = string(l.ch)
	case 'u':
		hex := ""
		if l.readPosition+4 <= len(l.input) {
			hex = l.input[l.readPosition : l.readPosition+4]
		}
		code, err := strconv.ParseUint(hex, 16, 16)
		if err != nil {
			l.readChar()
			l.fail(start, "\\u"+hex, "invalid unicode escape")
			return "", false
		}
		for i := 0; i < 4; i++ {
			l.readChar()
		}
		s = string(rune(code))
	case 0, '\n':
		// Let the caller report the unterminated literal.
		return "\\", true
	default:
		s = "\\" + string(l.ch)
	}
	l.readChar()
	return s, true
}

func (l *Lexer) readOperator(start position.Position) (TokenType, string) {
	ch := l.ch
	two := func(next byte, double, single TokenType) TokenType {
		if l.peekChar() == next {
			l.readChar()
			return double
		}
		return single
	}

	var tt TokenType
	switch ch {
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenMul
	case '/':
		tt = TokenDiv
	case '%':
		tt = TokenMod
	case '=':
		tt = two('=', TokenEq, TokenAssign)
	case '!':
		tt = two('=', TokenNe, TokenNot)
	case '<':
		tt = two('=', TokenLe, TokenLt)
	case '>':
		tt = two('=', TokenGe, TokenGt)
	case '&':
		tt = two('&', TokenAnd, TokenError)
	case '|':
		tt = two('|', TokenOr, TokenError)
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case '{':
		tt = TokenLBrace
	case '}':
		tt = TokenRBrace
	case ',':
		tt = TokenComma
	case ':':
		tt = TokenColon
	case '.':
		tt = TokenDot
	case ';':
		tt = TokenSemicolon
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.position:])
		for i := 0; i < size; i++ {
			l.readChar()
		}
		l.fail(start, string(r), "unexpected character %q", r)
		return TokenError, ""
	}

	l.readChar()
	if tt == TokenError {
		l.fail(start, string(ch), "unexpected character %q", ch)
		return TokenError, ""
	}
	return tt, l.input[start.Offset:l.position]
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
