package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Expression parsing using a Pratt parser.
//
// Precedence levels:
//
//	precedenceNone       = 0
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceComparison = 4  (=, !=, <, >, <=, >=, IS, IN, BETWEEN, LIKE, ILIKE)
//	precedenceAddition   = 5  (+, -, ||)
//	precedenceMultiply   = 6  (*, /, %)
//	precedenceUnary      = 7  (-, +)
//	precedencePostfix    = 8  (::, [], ->, ->>)
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceAddition
	precedenceMultiply
	precedenceUnary
	precedencePostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() ast.Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

// parseExpressionList parses expr {',' expr}.
func (p *Parser) parseExpressionList() []ast.Expr {
	var exprs []ast.Expr
	for {
		e := p.parseExpression()
		if e == nil {
			if !p.failed() {
				p.addError(fmt.Sprintf(ErrExpectedExpression, p.describe(p.token)))
			}
			return exprs
		}
		exprs = append(exprs, e)
		if !p.match(token.COMMA) {
			return exprs
		}
	}
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) ast.Expr {
	if !p.enter() {
		p.leave()
		return nil
	}
	defer p.leave()

	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec == precedenceNone || prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}
	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() ast.Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		if p.check(token.EXISTS) {
			e := p.parseExists()
			if e == nil {
				return nil
			}
			e.Not = true
			return e
		}
		expr := p.parseExpressionWithPrecedence(precedenceNot)
		return &ast.UnaryExpr{Op: token.NOT, Expr: expr}

	case token.MINUS, token.PLUS:
		op := p.token.Type
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &ast.UnaryExpr{Op: op, Expr: expr}

	case token.EXISTS:
		if e := p.parseExists(); e != nil {
			return e
		}
		return nil

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precedenceNone.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.IS, token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return precedenceComparison
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE, NOT ILIKE
		switch p.peek.Type {
		case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
			return precedenceComparison
		}
		return precedenceNone
	case token.PLUS, token.MINUS, token.DPIPE:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	case token.ARROW:
		if p.token.Literal == "=>" {
			return precedenceNone
		}
		return precedencePostfix
	case token.LBRACKET, token.DARROW:
		return precedencePostfix
	case token.DCOLON:
		if p.dialect.SupportsDoubleColonCast() {
			return precedencePostfix
		}
	}
	return precedenceNone
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left ast.Expr, prec int) ast.Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		return p.parseNegatableInfix(left, true)

	case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return p.parseNegatableInfix(left, false)

	case token.IS:
		return p.parseIsExpr(left)

	case token.DCOLON:
		p.nextToken()
		typeName := p.parseTypeName(false)
		return &ast.CastExpr{Expr: left, TypeName: typeName, Func: "CAST", Shorthand: true}

	case token.LBRACKET:
		p.nextToken()
		idx := p.parseExpression()
		p.expect(token.RBRACKET)
		return &ast.IndexExpr{Expr: left, Index: idx}
	}

	// Binary operator; left-associative.
	op := p.token
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		if !p.failed() {
			p.addError(fmt.Sprintf(ErrExpectedExpression, p.describe(p.token)))
		}
		return nil
	}
	return &ast.BinaryExpr{Left: left, Op: op.Type, Right: right}
}

// parseNegatableInfix parses [NOT] IN / BETWEEN / LIKE / ILIKE, with the
// current token on the operator.
func (p *Parser) parseNegatableInfix(left ast.Expr, not bool) ast.Expr {
	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, not)
	case token.BETWEEN:
		p.nextToken()
		low := p.parseExpressionWithPrecedence(precedenceAddition)
		p.expect(token.AND)
		high := p.parseExpressionWithPrecedence(precedenceAddition)
		return &ast.BetweenExpr{Expr: left, Not: not, Low: low, High: high}
	case token.LIKE, token.ILIKE:
		op := p.token.Type
		p.nextToken()
		pattern := p.parseExpressionWithPrecedence(precedenceAddition)
		if p.checkWord("escape") {
			// ESCAPE is accepted and dropped.
			p.nextToken()
			p.parseExpressionWithPrecedence(precedenceAddition)
		}
		return &ast.LikeExpr{Expr: left, Not: not, Op: op, Pattern: pattern}
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "IN, BETWEEN or LIKE"))
	return nil
}

// parseInExpr parses the operand of IN: '(' query ')' or '(' expr_list ')'.
func (p *Parser) parseInExpr(left ast.Expr, not bool) ast.Expr {
	in := &ast.InExpr{Expr: left, Not: not}
	if !p.expect(token.LPAREN) {
		return nil
	}
	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseQuery()
	} else if !p.check(token.RPAREN) {
		in.Values = p.parseExpressionList()
	}
	p.expect(token.RPAREN)
	return in
}

// parseIsExpr parses IS [NOT] (NULL | TRUE | FALSE).
func (p *Parser) parseIsExpr(left ast.Expr) ast.Expr {
	p.expect(token.IS)
	is := &ast.IsExpr{Expr: left, Not: p.match(token.NOT)}
	switch p.token.Type {
	case token.NULL, token.TRUE, token.FALSE:
		is.Value = p.token.Type
		p.nextToken()
		return is
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "NULL, TRUE or FALSE"))
	return nil
}

// parseExists parses EXISTS '(' query ')'.
func (p *Parser) parseExists() *ast.ExistsExpr {
	p.expect(token.EXISTS)
	if !p.expect(token.LPAREN) {
		return nil
	}
	q := p.parseQuery()
	p.expect(token.RPAREN)
	return &ast.ExistsExpr{Query: q}
}
