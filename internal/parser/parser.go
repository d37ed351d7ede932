// Package parser implements the microkt recursive descent parser.
// Expressions are parsed with Pratt precedence climbing; parsing stops at the
// first error.
package parser

import (
	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/diagnostic"
	"github.com/gaultier/microkt/internal/lexer"
	"github.com/gaultier/microkt/internal/position"
)

// Parser represents the recursive descent parser
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Token
	peek    lexer.Token
	prevEnd position.Position // end of the last consumed token
	err     error

	// newlineSignificant is false inside parentheses, where a line break
	// does not end an expression.
	newlineSignificant bool
}

// bailout unwinds the parser after the first error has been recorded.
type bailout struct{}

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:              l,
		newlineSignificant: true,
	}

	// Read the first two tokens
	p.peek = l.NextToken()
	p.advance()

	return p
}

// Parse parses source text into a program.
func Parse(src, filename string) (*ast.Program, error) {
	return NewParser(lexer.NewWithFilename(src, filename)).Parse()
}

// Parse parses the input and returns an AST. The first lexical or syntax
// error is returned as a *diagnostic.Error.
func (p *Parser) Parse() (program *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			program, err = nil, p.err
		}
	}()

	if p.err != nil {
		return nil, p.err
	}
	return p.parseProgram(), nil
}

// advance moves to the next token
func (p *Parser) advance() {
	p.prevEnd = p.current.Span.End
	p.current = p.peek
	if p.current.Type != lexer.TokenError && p.current.Type != lexer.TokenEOF {
		p.peek = p.lexer.NextToken()
	}
	if p.current.Type == lexer.TokenError && p.err == nil {
		p.err = p.lexer.Err()
	}
}

func (p *Parser) currentIs(types ...lexer.TokenType) bool {
	return p.current.Is(types...)
}

// expect consumes the current token when it has the given type
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	if p.current.Type != tt {
		p.errorExpected(tt.Describe())
	}
	tok := p.current
	p.advance()
	return tok
}

// errorExpected records a parse error at the current token and bails out
func (p *Parser) errorExpected(expected ...string) {
	p.fail(diagnostic.NewParseError(p.current.Span, expected, describe(p.current)))
}

// errorAt records a parse error with a custom message and bails out
func (p *Parser) errorAt(span position.Span, format string, args ...any) {
	err := diagnostic.New(diagnostic.ParseError, span, format, args...)
	err.Found = describe(p.current)
	p.fail(err)
}

func (p *Parser) fail(err *diagnostic.Error) {
	if p.err == nil {
		// A pending lexical error explains the failure better.
		if p.current.Type == lexer.TokenError {
			p.err = p.lexer.Err()
		} else {
			p.err = err
		}
	}
	panic(bailout{})
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenEOF:
		return "end of file"
	case lexer.TokenIdentifier:
		return "identifier '" + tok.Literal + "'"
	case lexer.TokenInteger:
		return "'" + tok.Literal + tok.Suffix + "'"
	case lexer.TokenString:
		return "string literal"
	case lexer.TokenChar:
		return "character literal"
	}
	return "'" + tok.Literal + "'"
}

// span returns the span from start to the end of the last consumed token
func (p *Parser) span(start position.Position) position.Span {
	return position.Span{Start: start, End: p.prevEnd}
}

// ====== Statements ======

func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{}
	start := p.current.Span.Start

	p.skipSemicolons()
	for !p.currentIs(lexer.TokenEOF) {
		program.Statements = append(program.Statements, p.parseStatement(true))
		p.endStatement()
	}

	program.Span = position.Span{Start: start, End: p.current.Span.End}
	return program
}

func (p *Parser) skipSemicolons() {
	for p.currentIs(lexer.TokenSemicolon) {
		p.advance()
	}
}

// endStatement checks that a statement is properly terminated by a newline,
// a semicolon, a closing brace or the end of input.
func (p *Parser) endStatement() {
	switch {
	case p.currentIs(lexer.TokenSemicolon):
		p.skipSemicolons()
	case p.currentIs(lexer.TokenRBrace, lexer.TokenEOF):
	case p.current.NewlineBefore:
	default:
		p.errorExpected("newline", "';'")
	}
}

func (p *Parser) parseStatement(topLevel bool) ast.Statement {
	switch p.current.Type {
	case lexer.TokenFun:
		return p.parseFunctionDecl()
	case lexer.TokenClass:
		if !topLevel {
			p.errorAt(p.current.Span, "class declarations are only allowed at top level")
		}
		return p.parseClassDecl()
	case lexer.TokenVal, lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	}
	return p.parseExpressionStatement()
}

// parseExpressionStatement parses an expression, or an assignment when the
// expression is followed by '=' on the same line.
func (p *Parser) parseExpressionStatement() ast.Statement {
	start := p.current.Span.Start
	expr := p.parseExpression(LOWEST)

	if p.currentIs(lexer.TokenAssign) && !p.current.NewlineBefore {
		switch expr.(type) {
		case *ast.Identifier, *ast.MemberExpr:
		default:
			p.errorAt(expr.GetSpan(), "invalid assignment target %s", expr)
		}
		p.advance()
		value := p.parseExpression(LOWEST)
		return &ast.Assignment{Span: p.span(start), Target: expr, Value: value}
	}

	return &ast.ExprStmt{Span: p.span(start), Expr: expr}
}

func (p *Parser) parseReturnStatement() *ast.ReturnStmt {
	start := p.expect(lexer.TokenReturn).Span.Start
	ret := &ast.ReturnStmt{}

	if !p.current.NewlineBefore &&
		!p.currentIs(lexer.TokenRBrace, lexer.TokenSemicolon, lexer.TokenEOF, lexer.TokenElse, lexer.TokenRParen) {
		ret.Value = p.parseExpression(LOWEST)
	}

	ret.Span = p.span(start)
	return ret
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	start := p.current.Span.Start
	decl := &ast.VarDecl{Mutable: p.currentIs(lexer.TokenVar)}
	p.advance()

	name := p.expect(lexer.TokenIdentifier)
	decl.Name, decl.NameSpan = name.Literal, name.Span

	if p.currentIs(lexer.TokenColon) {
		p.advance()
		decl.DeclaredType = p.parseTypeRef()
	}

	if !p.currentIs(lexer.TokenAssign) {
		if decl.DeclaredType == nil {
			p.errorExpected("':'", "'='")
		}
		p.errorExpected("'='")
	}
	p.advance()
	decl.Init = p.parseExpression(LOWEST)

	decl.Span = p.span(start)
	return decl
}

func (p *Parser) parseTypeRef() *ast.TypeRef {
	tok := p.current
	if tok.Type != lexer.TokenIdentifier {
		p.errorExpected("type name")
	}
	p.advance()
	return &ast.TypeRef{Span: tok.Span, Name: tok.Literal}
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	start := p.expect(lexer.TokenFun).Span.Start
	name := p.expect(lexer.TokenIdentifier)
	fn := &ast.FunctionDecl{Name: name.Literal, NameSpan: name.Span}

	p.expect(lexer.TokenLParen)
	for !p.currentIs(lexer.TokenRParen) {
		if len(fn.Parameters) > 0 {
			p.expect(lexer.TokenComma)
		}
		pstart := p.current.Span.Start
		pname := p.expect(lexer.TokenIdentifier)
		p.expect(lexer.TokenColon)
		ptype := p.parseTypeRef()
		fn.Parameters = append(fn.Parameters, &ast.Parameter{
			Span: p.span(pstart),
			Name: pname.Literal,
			Type: ptype,
		})
	}
	p.advance()

	if p.currentIs(lexer.TokenColon) {
		p.advance()
		fn.ReturnType = p.parseTypeRef()
	}

	if !p.currentIs(lexer.TokenLBrace) {
		p.errorExpected("'{'")
	}
	fn.Body = p.parseBlock()

	fn.Span = p.span(start)
	return fn
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	start := p.expect(lexer.TokenClass).Span.Start
	name := p.expect(lexer.TokenIdentifier)
	class := &ast.ClassDecl{Name: name.Literal, NameSpan: name.Span}

	// class Empty and class Empty {} are equivalent
	if p.currentIs(lexer.TokenLBrace) && !p.current.NewlineBefore {
		restore := p.setNewlineSignificant(true)
		p.advance()
		p.skipSemicolons()
		for !p.currentIs(lexer.TokenRBrace) {
			class.Fields = append(class.Fields, p.parseFieldDecl())
			p.endStatement()
		}
		restore()
		p.advance()
	}

	class.Span = p.span(start)
	return class
}

func (p *Parser) parseFieldDecl() *ast.FieldDecl {
	start := p.current.Span.Start
	if !p.currentIs(lexer.TokenVar, lexer.TokenVal) {
		p.errorExpected("'var'", "'val'", "'}'")
	}
	field := &ast.FieldDecl{Mutable: p.currentIs(lexer.TokenVar)}
	p.advance()

	field.Name = p.expect(lexer.TokenIdentifier).Literal
	p.expect(lexer.TokenColon)
	field.Type = p.parseTypeRef()
	p.expect(lexer.TokenAssign)
	field.Default = p.parseExpression(LOWEST)

	field.Span = p.span(start)
	return field
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(lexer.TokenLBrace).Span.Start
	restore := p.setNewlineSignificant(true)
	block := &ast.Block{}

	p.skipSemicolons()
	for !p.currentIs(lexer.TokenRBrace) {
		if p.currentIs(lexer.TokenEOF) {
			p.errorExpected("'}'")
		}
		block.Statements = append(block.Statements, p.parseStatement(false))
		p.endStatement()
	}
	restore()
	p.advance()

	block.Span = p.span(start)
	return block
}

// setNewlineSignificant switches line-break handling and returns a function
// restoring the previous mode.
func (p *Parser) setNewlineSignificant(on bool) func() {
	prev := p.newlineSignificant
	p.newlineSignificant = on
	return func() { p.newlineSignificant = prev }
}
