package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Statement parsing.
//
// Grammar:
//
//	script      → statement { ';' statement } [';']
//	statement   → query | raw_statement
//	query       → [with_clause] set_expr [ORDER BY order_list] [limit_clause]
//	with_clause → WITH [RECURSIVE] cte { ',' cte }
//	cte         → name ['(' ident_list ')'] AS '(' query ')'
//	set_expr    → set_primary { set_op set_primary }
//	set_op      → (UNION | EXCEPT | INTERSECT) [ALL | DISTINCT]
//	set_primary → select_core | '(' query ')'
//	select_core → SELECT [DISTINCT | ALL] [TOP n] select_list [FROM from_clause]
//	              [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	              [QUALIFY expr] [WINDOW name AS '(' window_spec ')' {, ...}]
//	limit_clause → LIMIT (expr | ALL) [OFFSET expr] | LIMIT expr ',' expr
//	             | OFFSET expr [ROW | ROWS] [fetch]
//	             | fetch
//	fetch       → FETCH (FIRST | NEXT) expr (ROW | ROWS) ONLY

// parseScript parses statements until EOF, stopping at the first error.
func (p *Parser) parseScript() []ast.Statement {
	var stmts []ast.Statement
	for !p.failed() {
		for p.check(token.SEMICOLON) {
			p.nextToken()
		}
		if p.check(token.EOF) {
			break
		}
		stmt := p.parseStatement()
		if p.failed() {
			break
		}
		stmts = append(stmts, stmt)
		if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
			p.addError(fmt.Sprintf(ErrExpectedEndOfStmt, p.describe(p.token)))
		}
	}
	return stmts
}

// parseStatement parses a query, or captures anything else verbatim.
func (p *Parser) parseStatement() ast.Statement {
	if p.startsQuery() {
		return p.parseQuery()
	}
	return p.parseRawStatement()
}

// startsQuery reports whether the current token begins a query.
func (p *Parser) startsQuery() bool {
	switch p.token.Type {
	case token.SELECT, token.WITH:
		return true
	case token.LPAREN:
		return p.checkPeek(token.SELECT) || p.checkPeek(token.WITH) || p.checkPeek(token.LPAREN)
	}
	return false
}

// parseRawStatement consumes tokens up to the next top-level ';' and keeps
// the covered source text.
func (p *Parser) parseRawStatement() ast.Statement {
	start := p.token.Pos.Offset
	end := len(p.input)
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				end = p.token.Pos.Offset
				return &ast.RawStatement{Text: strings.TrimSpace(p.input[start:end])}
			}
		}
		p.nextToken()
	}
	return &ast.RawStatement{Text: strings.TrimSpace(p.input[start:end])}
}

// parseQuery parses a full query expression.
func (p *Parser) parseQuery() *ast.Query {
	if !p.enter() {
		p.leave()
		return nil
	}
	defer p.leave()

	q := &ast.Query{}
	if p.check(token.WITH) {
		q.With = p.parseWith()
	}
	q.Body = p.parseSetExpr(setPrecUnion)
	if q.Body == nil {
		return q
	}

	if p.check(token.ORDER) && p.checkPeek(token.BY) {
		p.nextToken()
		p.nextToken()
		q.OrderBy = p.parseOrderByList()
	}
	q.Limit = p.parseLimit()
	return q
}

// parseWith parses WITH [RECURSIVE] cte {, cte}.
func (p *Parser) parseWith() *ast.With {
	p.expect(token.WITH)
	w := &ast.With{Recursive: p.match(token.RECURSIVE)}
	for {
		cte := p.parseCTE()
		if cte == nil {
			return w
		}
		w.CTEs = append(w.CTEs, cte)
		if !p.match(token.COMMA) {
			return w
		}
	}
}

// parseCTE parses name ['(' cols ')'] AS [[NOT] MATERIALIZED] '(' query ')'.
func (p *Parser) parseCTE() *ast.CTE {
	name, ok := p.parseIdent()
	if !ok {
		return nil
	}
	cte := &ast.CTE{Name: name}
	if p.match(token.LPAREN) {
		cte.Columns = p.parseIdentList()
		p.expect(token.RPAREN)
	}
	if !p.expect(token.AS) {
		return nil
	}
	if p.check(token.NOT) && strings.EqualFold(p.peek.Literal, "materialized") {
		p.nextToken()
		p.nextToken()
	} else if p.checkWord("materialized") {
		p.nextToken()
	}
	if !p.expect(token.LPAREN) {
		return nil
	}
	cte.Query = p.parseQuery()
	p.expect(token.RPAREN)
	return cte
}

// Set operation binding strength; INTERSECT binds tighter than UNION and
// EXCEPT.
const (
	setPrecUnion     = 1
	setPrecIntersect = 2
)

func (p *Parser) setOpPrecedence() int {
	switch p.token.Type {
	case token.UNION, token.EXCEPT:
		return setPrecUnion
	case token.INTERSECT:
		return setPrecIntersect
	}
	if p.checkWord("minus") && p.checkPeek(token.SELECT) {
		return setPrecUnion
	}
	return 0
}

// parseSetExpr parses set_primary {set_op set_primary} with precedence
// climbing.
func (p *Parser) parseSetExpr(minPrec int) ast.SetExpr {
	left := p.parseSetPrimary()
	if left == nil {
		return nil
	}
	for {
		prec := p.setOpPrecedence()
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.token.Type
		if op != token.UNION && op != token.INTERSECT {
			op = token.EXCEPT // EXCEPT or Oracle MINUS
		}
		p.nextToken()
		all := p.match(token.ALL)
		if !all {
			p.match(token.DISTINCT)
		}
		right := p.parseSetExpr(prec + 1)
		if right == nil {
			return left
		}
		left = &ast.SetOperation{Op: op, All: all, Left: left, Right: right}
	}
}

// parseSetPrimary parses a SELECT block or a parenthesized query.
func (p *Parser) parseSetPrimary() ast.SetExpr {
	switch p.token.Type {
	case token.SELECT:
		return p.parseSelect()
	case token.LPAREN:
		p.nextToken()
		q := p.parseQuery()
		p.expect(token.RPAREN)
		if q == nil {
			return nil
		}
		return q
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "SELECT"))
		return nil
	}
}

// parseSelect parses a single SELECT block.
func (p *Parser) parseSelect() *ast.Select {
	p.expect(token.SELECT)
	sel := &ast.Select{}

	if p.match(token.DISTINCT) {
		sel.Distinct = true
	} else {
		p.match(token.ALL)
	}

	if p.check(token.TOP) && p.dialect.Limit == dialect.LimitTop {
		p.nextToken()
		sel.Top = p.parseTop()
	}

	sel.Columns = p.parseSelectList()

	if p.match(token.FROM) {
		sel.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		sel.Where = p.parseExpression()
	}
	if p.check(token.GROUP) && p.checkPeek(token.BY) {
		p.nextToken()
		p.nextToken()
		p.match(token.ALL)
		sel.GroupBy = p.parseExpressionList()
	}
	if p.match(token.HAVING) {
		sel.Having = p.parseExpression()
	}
	if p.check(token.QUALIFY) {
		sel.Qualify = p.parseQualify()
	}
	if p.match(token.WINDOW) {
		sel.Windows = p.parseNamedWindows()
	}
	if sel.Qualify == nil && p.check(token.QUALIFY) {
		sel.Qualify = p.parseQualify()
	}
	return sel
}

func (p *Parser) parseQualify() ast.Expr {
	if !p.dialect.SupportsQualify() {
		p.addError(fmt.Sprintf(ErrUnsupportedClause, "QUALIFY", p.dialect.Name))
		return nil
	}
	p.nextToken()
	return p.parseExpression()
}

// parseTop parses the operand of TOP: a number, parameter or
// parenthesized expression.
func (p *Parser) parseTop() ast.Expr {
	if p.match(token.LPAREN) {
		e := p.parseExpression()
		p.expect(token.RPAREN)
		return &ast.ParenExpr{Expr: e}
	}
	switch p.token.Type {
	case token.NUMBER:
		lit := &ast.Literal{Type: ast.LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit
	case token.PARAM:
		e := &ast.ParamExpr{Text: p.token.Literal}
		p.nextToken()
		return e
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "NUMBER"))
	return nil
}

// parseSelectList parses select_item {',' select_item}.
func (p *Parser) parseSelectList() []ast.SelectItem {
	var items []ast.SelectItem
	for {
		item, ok := p.parseSelectItem()
		if !ok {
			return items
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			return items
		}
	}
}

// parseSelectItem parses '*' | qualifier '.' '*' | expr [[AS] alias].
func (p *Parser) parseSelectItem() (ast.SelectItem, bool) {
	expr := p.parseExpression()
	if expr == nil {
		if !p.failed() {
			p.addError(fmt.Sprintf(ErrExpectedExpression, p.describe(p.token)))
		}
		return ast.SelectItem{}, false
	}
	if star, ok := expr.(*ast.StarExpr); ok {
		if len(star.Qualifier) == 0 {
			return ast.SelectItem{Star: true}, true
		}
		return ast.SelectItem{TableStar: star.Qualifier}, true
	}
	return ast.SelectItem{Expr: expr, Alias: p.parseAlias()}, true
}

// parseOrderByList parses order_item {',' order_item}.
//
//	order_item → expr [ASC | DESC] [NULLS (FIRST | LAST)]
func (p *Parser) parseOrderByList() []ast.OrderByItem {
	var items []ast.OrderByItem
	for {
		e := p.parseExpression()
		if e == nil {
			return items
		}
		item := ast.OrderByItem{Expr: e}
		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}
		if p.match(token.NULLS) {
			first := p.check(token.FIRST)
			if !first && !p.check(token.LAST) {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "FIRST or LAST"))
				return items
			}
			p.nextToken()
			item.NullsFirst = &first
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			return items
		}
	}
}

// parseLimit parses the trailing row-limit clauses, if any.
func (p *Parser) parseLimit() *ast.Limit {
	var lim *ast.Limit
	if p.match(token.LIMIT) {
		lim = &ast.Limit{}
		if !p.match(token.ALL) {
			lim.Count = p.parseExpression()
		}
		if p.match(token.COMMA) {
			// LIMIT offset, count
			lim.Offset = lim.Count
			lim.Count = p.parseExpression()
		}
	}
	if p.match(token.OFFSET) {
		if lim == nil {
			lim = &ast.Limit{}
		}
		lim.Offset = p.parseExpression()
		if !p.match(token.ROWS) {
			p.match(token.ROW)
		}
	}
	if p.check(token.FETCH) {
		p.nextToken()
		if !p.match(token.FIRST) && !p.match(token.NEXT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "FIRST or NEXT"))
			return lim
		}
		if lim == nil {
			lim = &ast.Limit{}
		}
		if !p.check(token.ROW) && !p.check(token.ROWS) {
			lim.Count = p.parseExpression()
		} else {
			lim.Count = &ast.Literal{Type: ast.LiteralNumber, Value: "1"}
		}
		if !p.match(token.ROWS) && !p.expect(token.ROW) {
			return lim
		}
		p.expect(token.ONLY)
	}
	return lim
}
