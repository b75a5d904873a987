package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// FROM clause parsing.
//
// Grammar:
//
//	from_clause → table_ref { join | ',' table_ref }
//	join        → [NATURAL] [INNER | CROSS | (LEFT | RIGHT | FULL) [OUTER]] JOIN
//	              table_ref [ON expr | USING '(' ident_list ')']
//	table_ref   → [LATERAL] '(' query ')' [alias ['(' ident_list ')']]
//	            | '(' from_clause ')' [alias]
//	            | [LATERAL] name { '.' name } '(' func_args ')' [alias ['(' ident_list ')']]
//	            | name { '.' name } [alias]

// parseFromClause parses a FROM list with its joins.
func (p *Parser) parseFromClause() *ast.FromClause {
	src := p.parseTableRef()
	if src == nil {
		return nil
	}
	from := &ast.FromClause{Source: src}
	for {
		if p.match(token.COMMA) {
			right := p.parseTableRef()
			if right == nil {
				return from
			}
			from.Joins = append(from.Joins, &ast.Join{Type: token.COMMA, Right: right})
			continue
		}
		join := p.parseJoin()
		if join == nil {
			return from
		}
		from.Joins = append(from.Joins, join)
	}
}

// parseJoin parses one JOIN step, or returns nil when the current token
// does not start one.
func (p *Parser) parseJoin() *ast.Join {
	join := &ast.Join{Type: token.INNER}
	if p.check(token.NATURAL) {
		join.Natural = true
		p.nextToken()
	}

	switch p.token.Type {
	case token.JOIN:
	case token.INNER:
		p.nextToken()
	case token.CROSS:
		join.Type = token.CROSS
		p.nextToken()
	case token.LEFT, token.RIGHT, token.FULL:
		join.Type = p.token.Type
		p.nextToken()
		p.match(token.OUTER)
	default:
		if join.Natural {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "JOIN"))
		}
		return nil
	}
	if !p.expect(token.JOIN) {
		return nil
	}

	join.Right = p.parseTableRef()
	if join.Right == nil {
		return nil
	}

	switch {
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		if p.expect(token.LPAREN) {
			join.Using = p.parseIdentList()
			p.expect(token.RPAREN)
		}
	}
	return join
}

// parseTableRef parses one FROM item.
func (p *Parser) parseTableRef() ast.TableRef {
	lateral := p.match(token.LATERAL)

	if p.check(token.LPAREN) {
		if p.checkPeek(token.SELECT) || p.checkPeek(token.WITH) ||
			(p.checkPeek(token.LPAREN) && (p.checkPeek2(token.SELECT) || p.checkPeek2(token.WITH))) {
			return p.parseDerivedTable(lateral)
		}
		p.nextToken()
		inner := p.parseFromClause()
		p.expect(token.RPAREN)
		if inner == nil {
			return nil
		}
		return &ast.ParenJoin{From: inner, Alias: p.parseAlias()}
	}

	if !isIdentLike(p.token) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "table name"))
		return nil
	}

	parts := []ast.Ident{identOf(p.token)}
	p.nextToken()
	for p.check(token.DOT) {
		p.nextToken()
		if !isAnyWord(p.token) {
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, p.describe(p.token)))
			return nil
		}
		parts = append(parts, identOf(p.token))
		p.nextToken()
	}

	if p.check(token.LPAREN) {
		expr := p.parseFunctionCall(parts)
		fn, ok := expr.(*ast.FuncCall)
		if !ok {
			if !p.failed() {
				p.addError("expected table function")
			}
			return nil
		}
		tf := &ast.TableFunction{Lateral: lateral, Func: fn, Alias: p.parseAlias()}
		tf.ColumnAliases = p.parseColumnAliases(tf.Alias)
		return tf
	}

	tn := &ast.TableName{Parts: parts, Alias: p.parseAlias()}
	p.skipTableHints()
	return tn
}

// parseDerivedTable parses '(' query ')' [alias [(cols)]].
func (p *Parser) parseDerivedTable(lateral bool) ast.TableRef {
	p.expect(token.LPAREN)
	q := p.parseQuery()
	if !p.expect(token.RPAREN) || q == nil {
		return nil
	}
	dt := &ast.DerivedTable{Lateral: lateral, Query: q, Alias: p.parseAlias()}
	dt.ColumnAliases = p.parseColumnAliases(dt.Alias)
	return dt
}

// parseColumnAliases parses the optional '(' ident_list ')' after an alias.
func (p *Parser) parseColumnAliases(alias ast.Ident) []ast.Ident {
	if alias.Value == "" || !p.check(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cols := p.parseIdentList()
	p.expect(token.RPAREN)
	return cols
}

// skipTableHints drops T-SQL table hints: WITH (NOLOCK, ...).
func (p *Parser) skipTableHints() {
	if !strings.EqualFold(p.dialect.Name, "tsql") || !p.check(token.WITH) || !p.checkPeek(token.LPAREN) {
		return
	}
	p.nextToken()
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			return
		}
	}
}
