package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Window specifications.
//
// Grammar:
//
//	over        → OVER (name | '(' window_spec ')')
//	window_spec → [name] [PARTITION BY expr_list] [ORDER BY order_list] [frame]
//	frame       → (ROWS | RANGE | GROUPS) (bound | BETWEEN bound AND bound)
//	bound       → UNBOUNDED (PRECEDING | FOLLOWING) | CURRENT ROW
//	            | expr (PRECEDING | FOLLOWING)

// parseOver parses the window after OVER.
func (p *Parser) parseOver() *ast.WindowSpec {
	if isIdentLike(p.token) {
		spec := &ast.WindowSpec{Name: p.token.Literal}
		p.nextToken()
		return spec
	}
	if !p.expect(token.LPAREN) {
		return nil
	}
	spec := p.parseWindowSpec()
	p.expect(token.RPAREN)
	return spec
}

// parseWindowSpec parses the contents of a window's parentheses.
func (p *Parser) parseWindowSpec() *ast.WindowSpec {
	spec := &ast.WindowSpec{}
	if p.check(token.IDENT) {
		spec.Name = p.token.Literal
		p.nextToken()
	}
	if p.check(token.PARTITION) && p.checkPeek(token.BY) {
		p.nextToken()
		p.nextToken()
		spec.PartitionBy = p.parseExpressionList()
	}
	if p.check(token.ORDER) && p.checkPeek(token.BY) {
		p.nextToken()
		p.nextToken()
		spec.OrderBy = p.parseOrderByList()
	}
	switch p.token.Type {
	case token.ROWS, token.RANGE, token.GROUPS:
		spec.Frame = p.parseFrame()
	}
	return spec
}

// parseFrame parses a frame clause.
func (p *Parser) parseFrame() *ast.FrameSpec {
	frame := &ast.FrameSpec{Type: p.token.Type}
	p.nextToken()
	if p.match(token.BETWEEN) {
		frame.Start = p.parseFrameBound()
		p.expect(token.AND)
		end := p.parseFrameBound()
		frame.End = &end
		return frame
	}
	frame.Start = p.parseFrameBound()
	return frame
}

// parseFrameBound parses one frame bound.
func (p *Parser) parseFrameBound() ast.FrameBound {
	switch {
	case p.match(token.UNBOUNDED):
		if p.match(token.PRECEDING) {
			return ast.FrameBound{Type: ast.FrameUnboundedPreceding}
		}
		p.expect(token.FOLLOWING)
		return ast.FrameBound{Type: ast.FrameUnboundedFollowing}
	case p.match(token.CURRENT):
		p.expect(token.ROW)
		return ast.FrameBound{Type: ast.FrameCurrentRow}
	}
	offset := p.parseExpressionWithPrecedence(precedenceAddition)
	if p.match(token.PRECEDING) {
		return ast.FrameBound{Type: ast.FrameExprPreceding, Offset: offset}
	}
	if !p.match(token.FOLLOWING) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "PRECEDING or FOLLOWING"))
	}
	return ast.FrameBound{Type: ast.FrameExprFollowing, Offset: offset}
}

// parseNamedWindows parses name AS '(' window_spec ')' {',' ...}.
func (p *Parser) parseNamedWindows() []ast.NamedWindow {
	var windows []ast.NamedWindow
	for {
		name, ok := p.parseIdent()
		if !ok || !p.expect(token.AS) || !p.expect(token.LPAREN) {
			return windows
		}
		spec := p.parseWindowSpec()
		p.expect(token.RPAREN)
		windows = append(windows, ast.NamedWindow{Name: name.Value, Spec: spec})
		if !p.match(token.COMMA) {
			return windows
		}
	}
}
