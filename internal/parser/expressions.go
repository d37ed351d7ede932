package parser

import (
	"strconv"
	"unicode/utf8"

	"github.com/gaultier/microkt/internal/ast"
	"github.com/gaultier/microkt/internal/lexer"
)

// Precedence levels for operators
type Precedence int

const (
	_ Precedence = iota
	LOWEST
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -X !X
	CALL        // f(X) X.Y
)

// precedences maps token types to their precedence levels
var precedences = map[lexer.TokenType]Precedence{
	lexer.TokenOr:  LOGICAL_OR,
	lexer.TokenAnd: LOGICAL_AND,

	lexer.TokenEq: EQUALS,
	lexer.TokenNe: EQUALS,
	lexer.TokenLt: LESSGREATER,
	lexer.TokenLe: LESSGREATER,
	lexer.TokenGt: LESSGREATER,
	lexer.TokenGe: LESSGREATER,

	lexer.TokenPlus:  SUM,
	lexer.TokenMinus: SUM,

	lexer.TokenMul: PRODUCT,
	lexer.TokenDiv: PRODUCT,
	lexer.TokenMod: PRODUCT,

	lexer.TokenLParen: CALL,
	lexer.TokenDot:    CALL,
}

var binaryOperators = map[lexer.TokenType]ast.Operator{
	lexer.TokenPlus:  ast.OpAdd,
	lexer.TokenMinus: ast.OpSub,
	lexer.TokenMul:   ast.OpMul,
	lexer.TokenDiv:   ast.OpDiv,
	lexer.TokenMod:   ast.OpMod,
	lexer.TokenEq:    ast.OpEq,
	lexer.TokenNe:    ast.OpNe,
	lexer.TokenLt:    ast.OpLt,
	lexer.TokenLe:    ast.OpLe,
	lexer.TokenGt:    ast.OpGt,
	lexer.TokenGe:    ast.OpGe,
	lexer.TokenAnd:   ast.OpAnd,
	lexer.TokenOr:    ast.OpOr,
}

// currentPrecedence returns the infix precedence of the current token, or
// LOWEST when it cannot continue the expression on the left.
func (p *Parser) currentPrecedence() Precedence {
	tok := p.current
	// Only member access may continue an expression on the next line.
	if tok.NewlineBefore && p.newlineSignificant && tok.Type != lexer.TokenDot {
		return LOWEST
	}
	if prec, ok := precedences[tok.Type]; ok {
		return prec
	}
	return LOWEST
}

// parseExpression parses expressions using Pratt parsing. All binary
// operators are left associative.
func (p *Parser) parseExpression(precedence Precedence) ast.Expression {
	left := p.parsePrefixExpression()

	for precedence < p.currentPrecedence() {
		left = p.parseInfixExpression(left)
	}

	return left
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.current

	switch tok.Type {
	case lexer.TokenInteger:
		p.advance()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorAt(tok.Span, "invalid integer literal %s", tok.Literal)
		}
		return &ast.Literal{Span: tok.Span, Kind: ast.LiteralInteger, Int: v, Suffix: tok.Suffix}

	case lexer.TokenBool:
		p.advance()
		return &ast.Literal{Span: tok.Span, Kind: ast.LiteralBoolean, Bool: tok.Literal == "true"}

	case lexer.TokenChar:
		p.advance()
		r, _ := utf8.DecodeRuneInString(tok.Literal)
		return &ast.Literal{Span: tok.Span, Kind: ast.LiteralChar, Text: tok.Literal, Int: int64(r)}

	case lexer.TokenString:
		p.advance()
		return &ast.Literal{Span: tok.Span, Kind: ast.LiteralString, Text: tok.Literal}

	case lexer.TokenIdentifier:
		p.advance()
		return &ast.Identifier{Span: tok.Span, Name: tok.Literal}

	case lexer.TokenMinus, lexer.TokenNot:
		p.advance()
		op := ast.OpNeg
		if tok.Type == lexer.TokenNot {
			op = ast.OpNot
		}
		operand := p.parseExpression(PREFIX)
		return &ast.UnaryExpr{Span: p.span(tok.Span.Start), Operator: op, Operand: operand}

	case lexer.TokenLParen:
		p.advance()
		restore := p.setNewlineSignificant(false)
		expr := p.parseExpression(LOWEST)
		restore()
		p.expect(lexer.TokenRParen)
		return expr

	case lexer.TokenIf:
		return p.parseIfExpression()
	}

	p.errorExpected("expression")
	return nil
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	switch p.current.Type {
	case lexer.TokenLParen:
		return p.parseCallExpression(left)
	case lexer.TokenDot:
		return p.parseMemberExpression(left)
	}

	op, ok := binaryOperators[p.current.Type]
	if !ok {
		p.errorExpected("operator")
	}
	precedence := p.currentPrecedence()
	p.advance()

	right := p.parseExpression(precedence)
	return &ast.BinaryExpr{
		Span:     p.span(left.GetSpan().Start),
		Operator: op,
		Left:     left,
		Right:    right,
	}
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	p.expect(lexer.TokenLParen)
	restore := p.setNewlineSignificant(false)
	call := &ast.CallExpr{Callee: callee}

	for !p.currentIs(lexer.TokenRParen) {
		if len(call.Arguments) > 0 {
			if !p.currentIs(lexer.TokenComma) {
				p.errorExpected("','", "')'")
			}
			p.advance()
		}
		call.Arguments = append(call.Arguments, p.parseExpression(LOWEST))
	}
	restore()
	p.advance()

	call.Span = p.span(callee.GetSpan().Start)
	return call
}

func (p *Parser) parseMemberExpression(receiver ast.Expression) ast.Expression {
	p.expect(lexer.TokenDot)
	field := p.expect(lexer.TokenIdentifier)
	return &ast.MemberExpr{
		Span:      p.span(receiver.GetSpan().Start),
		Receiver:  receiver,
		Field:     field.Literal,
		FieldSpan: field.Span,
	}
}

// parseIfExpression parses if (cond) branch [else branch]. The else keyword
// may follow a line break.
func (p *Parser) parseIfExpression() ast.Expression {
	start := p.expect(lexer.TokenIf).Span.Start
	expr := &ast.IfExpr{}

	p.expect(lexer.TokenLParen)
	restore := p.setNewlineSignificant(false)
	expr.Condition = p.parseExpression(LOWEST)
	restore()
	p.expect(lexer.TokenRParen)

	expr.Then = p.parseBranch()
	if p.currentIs(lexer.TokenSemicolon) && p.peek.Type == lexer.TokenElse {
		p.advance()
	}
	if p.currentIs(lexer.TokenElse) {
		p.advance()
		expr.Else = p.parseBranch()
	}

	expr.Span = p.span(start)
	return expr
}

// parseBranch parses a block or a single non-declaration statement.
func (p *Parser) parseBranch() ast.Statement {
	switch p.current.Type {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenVal, lexer.TokenVar, lexer.TokenFun, lexer.TokenClass:
		p.errorExpected("expression", "'{'")
	}
	return p.parseExpressionStatement()
}
