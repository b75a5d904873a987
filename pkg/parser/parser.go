// Package parser turns SQL text into the syntax tree defined by package ast.
//
// # Usage
//
//	stmts, err := parser.Parse("SELECT a, b FROM t", dialect.MustGet("postgres"))
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for the query subset of
// SQL. Any other statement is kept verbatim as an ast.RawStatement.
//
//	script        → statement { ';' statement } [';']
//	statement     → query | raw_statement
//	query         → [WITH [RECURSIVE] cte_list] set_expr [ORDER BY order_list]
//	                [LIMIT expr [OFFSET expr] | OFFSET expr [ROWS] [FETCH ...]]
//	set_expr      → set_primary {(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] set_primary}
//	set_primary   → select_core | '(' query ')'
//	select_core   → SELECT [DISTINCT|ALL] [TOP n] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [QUALIFY expr] [WINDOW window_list]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// DefaultMaxDepth bounds query and expression nesting.
const DefaultMaxDepth = 128

// Parser parses SQL into an AST.
type Parser struct {
	input   string
	lexer   *Lexer
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	errors  []error
	dialect *dialect.Dialect

	maxDepth int
	depth    int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// NewParser creates a new parser for the given SQL input. A nil dialect
// selects the generic dialect.
func NewParser(sql string, d *dialect.Dialect, opts ...Option) *Parser {
	if d == nil {
		d = dialect.Generic
	}
	p := &Parser{
		input:    sql,
		lexer:    NewLexer(sql, d),
		dialect:  d,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses every statement in sql. It returns the first lexical or
// syntax error encountered.
func Parse(sql string, d *dialect.Dialect, opts ...Option) ([]ast.Statement, error) {
	p := NewParser(sql, d, opts...)
	stmts := p.parseScript()
	if err := p.firstError(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// ParseQuery parses sql, which must hold exactly one query.
func ParseQuery(sql string, d *dialect.Dialect, opts ...Option) (*ast.Query, error) {
	stmts, err := Parse(sql, d, opts...)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, &ParseError{Pos: token.Position{Line: 1, Column: 1}, Message: fmt.Sprintf("expected one statement, found %d", len(stmts))}
	}
	q, ok := stmts[0].(*ast.Query)
	if !ok {
		return nil, &ParseError{Pos: token.Position{Line: 1, Column: 1}, Message: "statement is not a query"}
	}
	return q, nil
}

func (p *Parser) firstError() error {
	if errs := p.lexer.Errors(); len(errs) > 0 {
		return errs[0]
	}
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	return nil
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0 || len(p.lexer.Errors()) > 0
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// checkWord reports whether the current token is the bare word w, which
// need not be a keyword.
func (p *Parser) checkWord(w string) bool {
	return !p.token.Quoted && (p.token.Type == token.IDENT || token.IsKeyword(p.token.Type)) &&
		strings.EqualFold(p.token.Literal, w)
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), t))
	return false
}

// describe renders a token for error messages.
func (p *Parser) describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "EOF"
	case token.IDENT, token.NUMBER, token.STRING, token.PARAM, token.ILLEGAL:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// enter records one level of nesting. It returns false, after recording
// an error, once the depth limit is exceeded; callers must then call
// leave and unwind.
func (p *Parser) enter() bool {
	p.depth++
	if p.depth > p.maxDepth {
		if len(p.errors) == 0 {
			p.errors = append(p.errors, &ParseError{
				Pos:     p.token.Pos,
				Message: fmt.Sprintf(ErrNestingDepthExceeded, p.maxDepth),
				Err:     ErrMaxDepth,
			})
		}
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// ---------- Identifier Helpers ----------

// isIdentLike returns true if tok can be used as an identifier: a plain or
// quoted identifier, or a keyword that is not reserved.
func isIdentLike(tok token.Token) bool {
	if tok.Type == token.IDENT {
		return true
	}
	return token.IsKeyword(tok.Type) && !token.IsReserved(tok.Type)
}

// isAnyWord returns true if tok is an identifier or any keyword. Used
// after a dot, where reserved words are valid names.
func isAnyWord(tok token.Token) bool {
	return tok.Type == token.IDENT || token.IsKeyword(tok.Type)
}

func identOf(tok token.Token) ast.Ident {
	return ast.Ident{Value: tok.Literal, Quoted: tok.Quoted}
}

// parseIdent consumes an identifier-like token.
func (p *Parser) parseIdent() (ast.Ident, bool) {
	if !isIdentLike(p.token) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, p.describe(p.token)))
		return ast.Ident{}, false
	}
	id := identOf(p.token)
	p.nextToken()
	return id, true
}

// parseIdentList parses ident {',' ident}.
func (p *Parser) parseIdentList() []ast.Ident {
	var ids []ast.Ident
	for {
		id, ok := p.parseIdent()
		if !ok {
			return ids
		}
		ids = append(ids, id)
		if !p.match(token.COMMA) {
			return ids
		}
	}
}

// parseAlias parses [AS] alias. Without AS only a plain identifier is
// taken, so that following clause keywords are not swallowed.
func (p *Parser) parseAlias() ast.Ident {
	if p.match(token.AS) {
		if p.check(token.STRING) {
			id := ast.Ident{Value: p.token.Literal, Quoted: true}
			p.nextToken()
			return id
		}
		if isAnyWord(p.token) {
			id := identOf(p.token)
			p.nextToken()
			return id
		}
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, p.describe(p.token)))
		return ast.Ident{}
	}
	if p.check(token.IDENT) {
		id := identOf(p.token)
		p.nextToken()
		return id
	}
	return ast.Ident{}
}
