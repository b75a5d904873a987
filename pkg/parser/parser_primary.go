package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Primary expressions.
//
// Grammar:
//
//	primary   → literal | param | '*' | case_expr | cast_expr | interval
//	          | '(' query ')' | '(' expr ')'
//	          | name { '.' name } ['.' '*']
//	          | name { '.' name } '(' func_args ')' [WITHIN GROUP (...)]
//	            [FILTER '(' WHERE expr ')'] [OVER window]
//	case_expr → CASE [expr] WHEN expr THEN expr {WHEN ...} [ELSE expr] END
//	cast_expr → (CAST | TRY_CAST | SAFE_CAST) '(' expr AS type ')'
//	interval  → INTERVAL (string | number) [unit]

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() ast.Expr {
	tok := p.token
	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		return &ast.Literal{Type: ast.LiteralNumber, Value: tok.Literal}
	case token.STRING:
		p.nextToken()
		return &ast.Literal{Type: ast.LiteralString, Value: tok.Literal}
	case token.TRUE, token.FALSE:
		p.nextToken()
		return &ast.Literal{Type: ast.LiteralBool, Value: strings.ToUpper(tok.Literal)}
	case token.NULL:
		p.nextToken()
		return &ast.Literal{Type: ast.LiteralNull, Value: "NULL"}
	case token.PARAM:
		p.nextToken()
		return &ast.ParamExpr{Text: tok.Literal}
	case token.STAR:
		p.nextToken()
		return &ast.StarExpr{}
	case token.CASE:
		return p.parseCase()
	case token.CAST:
		p.nextToken()
		return p.parseCastBody("CAST")
	case token.LPAREN:
		return p.parseParenExpr()
	case token.INTERVAL:
		if p.checkPeek(token.STRING) || p.checkPeek(token.NUMBER) {
			return p.parseInterval()
		}
	case token.LEFT, token.RIGHT:
		// LEFT(s, n) and RIGHT(s, n) are functions despite being keywords.
		if p.checkPeek(token.LPAREN) {
			p.nextToken()
			return p.parseFunctionCall([]ast.Ident{identOf(tok)})
		}
	}

	if isIdentLike(tok) {
		return p.parseNameExpr()
	}

	if !p.failed() {
		p.addError(fmt.Sprintf(ErrExpectedExpression, p.describe(tok)))
	}
	return nil
}

// parseParenExpr parses '(' query ')' or '(' expr ')'.
func (p *Parser) parseParenExpr() ast.Expr {
	p.expect(token.LPAREN)
	if p.check(token.SELECT) || p.check(token.WITH) {
		q := p.parseQuery()
		p.expect(token.RPAREN)
		if q == nil {
			return nil
		}
		return &ast.SubqueryExpr{Query: q}
	}
	e := p.parseExpression()
	if e == nil {
		return nil
	}
	p.expect(token.RPAREN)
	return &ast.ParenExpr{Expr: e}
}

// parseNameExpr parses a possibly qualified name, which may turn out to be
// a column reference, a qualified star or a function call.
func (p *Parser) parseNameExpr() ast.Expr {
	parts := []ast.Ident{identOf(p.token)}
	p.nextToken()

	for p.check(token.DOT) {
		if p.checkPeek(token.STAR) {
			p.nextToken()
			p.nextToken()
			return &ast.StarExpr{Qualifier: parts}
		}
		if !isAnyWord(p.peek) {
			p.nextToken()
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, p.describe(p.token)))
			return nil
		}
		p.nextToken()
		parts = append(parts, identOf(p.token))
		p.nextToken()
	}

	if p.check(token.LPAREN) {
		return p.parseFunctionCall(parts)
	}
	if len(parts) == 1 {
		id := parts[0]
		return &id
	}
	return &ast.CompoundIdent{Parts: parts}
}

// parseFunctionCall parses '(' [DISTINCT] args ')' and any trailing
// WITHIN GROUP, FILTER and OVER clauses.
func (p *Parser) parseFunctionCall(name []ast.Ident) ast.Expr {
	if len(name) == 1 && !name[0].Quoted {
		switch strings.ToLower(name[0].Value) {
		case "try_cast", "safe_cast":
			return p.parseCastBody(strings.ToUpper(name[0].Value))
		case "extract":
			return p.parseExtract()
		}
	}

	p.expect(token.LPAREN)
	fn := &ast.FuncCall{Name: name}

	switch {
	case p.check(token.STAR):
		p.nextToken()
		fn.Star = true
	case p.check(token.RPAREN):
	default:
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		} else {
			p.match(token.ALL)
		}
		fn.Args = p.parseFuncArgs()
		if p.check(token.ORDER) && p.checkPeek(token.BY) {
			p.nextToken()
			p.nextToken()
			fn.OrderBy = p.parseOrderByList()
		}
		if p.check(token.LIMIT) {
			// BigQuery ARRAY_AGG(x LIMIT n): accepted and dropped.
			p.nextToken()
			p.parseExpression()
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	if p.check(token.WITHIN) && p.checkPeek(token.GROUP) {
		p.nextToken()
		p.nextToken()
		p.expect(token.LPAREN)
		if p.expect(token.ORDER) && p.expect(token.BY) {
			fn.Within = p.parseOrderByList()
		}
		p.expect(token.RPAREN)
	}

	if p.check(token.FILTER) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}

	if p.match(token.OVER) {
		fn.Window = p.parseOver()
	}
	return fn
}

// parseFuncArgs parses arg {',' arg} where arg → [name '=>'] expr.
func (p *Parser) parseFuncArgs() []ast.FuncArg {
	var args []ast.FuncArg
	for {
		var arg ast.FuncArg
		if isIdentLike(p.token) && p.checkPeek(token.ARROW) && p.peek.Literal == "=>" {
			arg.Name = p.token.Literal
			p.nextToken()
			p.nextToken()
		}
		arg.Value = p.parseExpression()
		if arg.Value == nil {
			if !p.failed() {
				p.addError(fmt.Sprintf(ErrExpectedExpression, p.describe(p.token)))
			}
			return args
		}
		args = append(args, arg)
		if !p.match(token.COMMA) {
			return args
		}
	}
}

// parseCase parses CASE [operand] WHEN ... THEN ... [ELSE ...] END.
func (p *Parser) parseCase() ast.Expr {
	p.expect(token.CASE)
	c := &ast.CaseExpr{}
	if !p.check(token.WHEN) {
		c.Operand = p.parseExpression()
	}
	for p.match(token.WHEN) {
		cond := p.parseExpression()
		if !p.expect(token.THEN) {
			return nil
		}
		result := p.parseExpression()
		c.Whens = append(c.Whens, ast.WhenClause{Condition: cond, Result: result})
	}
	if len(c.Whens) == 0 {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "WHEN"))
		return nil
	}
	if p.match(token.ELSE) {
		c.Else = p.parseExpression()
	}
	if !p.expect(token.END) {
		return nil
	}
	return c
}

// parseCastBody parses '(' expr AS type ')' following the cast keyword.
func (p *Parser) parseCastBody(fn string) ast.Expr {
	if !p.expect(token.LPAREN) {
		return nil
	}
	e := p.parseExpression()
	if !p.expect(token.AS) {
		return nil
	}
	typeName := p.parseTypeName(true)
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ast.CastExpr{Expr: e, TypeName: typeName, Func: fn}
}

// parseTypeName parses a data type such as INT, VARCHAR(10),
// DECIMAL(10, 2), ARRAY<STRING> or INT[]. Inside CAST(... AS type) the
// type may span several words (DOUBLE PRECISION, TIMESTAMP WITH TIME ZONE).
func (p *Parser) parseTypeName(multiword bool) string {
	if !isAnyWord(p.token) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "type name"))
		return ""
	}
	var b strings.Builder
	base := strings.ToUpper(p.token.Literal)
	b.WriteString(p.token.Literal)
	p.nextToken()

	for multiword && isAnyWord(p.token) {
		b.WriteByte(' ')
		b.WriteString(p.token.Literal)
		p.nextToken()
	}

	if p.check(token.LT) && (multiword || base == "ARRAY" || base == "STRUCT" || base == "MAP") {
		depth := 0
		for !p.check(token.EOF) {
			switch p.token.Type {
			case token.LT:
				depth++
			case token.GT:
				depth--
			}
			switch p.token.Type {
			case token.COMMA:
				b.WriteString(", ")
			case token.LT, token.GT:
				b.WriteString(p.token.Literal)
			default:
				if last := b.String(); len(last) > 0 && last[len(last)-1] != '<' && last[len(last)-1] != ' ' {
					b.WriteByte(' ')
				}
				b.WriteString(p.token.Literal)
			}
			p.nextToken()
			if depth == 0 {
				break
			}
		}
	}

	if p.check(token.LPAREN) {
		p.nextToken()
		b.WriteByte('(')
		first := true
		for !p.check(token.RPAREN) && !p.check(token.EOF) {
			if p.match(token.COMMA) {
				b.WriteString(", ")
				first = true
				continue
			}
			if !first {
				b.WriteByte(' ')
			}
			b.WriteString(p.token.Literal)
			first = false
			p.nextToken()
		}
		p.expect(token.RPAREN)
		b.WriteByte(')')
	}

	for p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET) {
		p.nextToken()
		p.nextToken()
		b.WriteString("[]")
	}
	return b.String()
}

// parseInterval parses INTERVAL value [unit].
func (p *Parser) parseInterval() ast.Expr {
	p.expect(token.INTERVAL)
	value := p.parsePrimary()
	iv := &ast.IntervalExpr{Value: value}
	if p.check(token.IDENT) && !p.token.Quoted && isIntervalUnit(p.token.Literal) {
		iv.Unit = strings.ToUpper(p.token.Literal)
		p.nextToken()
	}
	return iv
}

func isIntervalUnit(s string) bool {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "year", "quarter", "month", "week", "day", "hour", "minute", "second",
		"millisecond", "microsecond", "nanosecond":
		return true
	}
	return false
}

// parseExtract parses EXTRACT '(' field FROM expr ')'.
func (p *Parser) parseExtract() ast.Expr {
	p.expect(token.LPAREN)
	if !isAnyWord(p.token) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, p.describe(p.token)))
		return nil
	}
	field := strings.ToUpper(p.token.Literal)
	p.nextToken()
	if !p.expect(token.FROM) {
		return nil
	}
	e := p.parseExpression()
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ast.ExtractExpr{Field: field, Expr: e}
}
