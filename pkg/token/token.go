// Package token defines the lexical tokens of the SQL subset understood by
// the parser.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // token.TokenType reads better at call sites than token.Type
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, quoted or bare
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'
	PARAM  // ?, $1, :name, @name

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	DCOLON    // ::
	ARROW     // -> or =>
	DARROW    // ->>

	keywordStart

	// Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CROSS
	CURRENT
	DESC
	DISTINCT
	ELSE
	END
	EXCEPT
	EXISTS
	FALSE
	FETCH
	FILTER
	FIRST
	FOLLOWING
	FROM
	FULL
	GROUP
	GROUPS
	HAVING
	ILIKE
	IN
	INNER
	INTERSECT
	INTERVAL
	IS
	JOIN
	LAST
	LATERAL
	LEFT
	LIKE
	LIMIT
	NATURAL
	NEXT
	NOT
	NULL
	NULLS
	OFFSET
	ON
	ONLY
	OR
	ORDER
	OUTER
	OVER
	PARTITION
	PRECEDING
	QUALIFY
	RANGE
	RECURSIVE
	RIGHT
	ROW
	ROWS
	SELECT
	THEN
	TOP
	TRUE
	UNBOUNDED
	UNION
	USING
	WHEN
	WHERE
	WINDOW
	WITH
	WITHIN

	keywordEnd
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	DCOLON:    "::",
	ARROW:     "->",
	DARROW:    "->>",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{}

func init() {
	for t, name := range map[TokenType]string{
		ALL: "ALL", AND: "AND", AS: "AS", ASC: "ASC", BETWEEN: "BETWEEN", BY: "BY",
		CASE: "CASE", CAST: "CAST", CROSS: "CROSS", CURRENT: "CURRENT", DESC: "DESC",
		DISTINCT: "DISTINCT", ELSE: "ELSE", END: "END", EXCEPT: "EXCEPT", EXISTS: "EXISTS",
		FALSE: "FALSE", FETCH: "FETCH", FILTER: "FILTER", FIRST: "FIRST", FOLLOWING: "FOLLOWING",
		FROM: "FROM", FULL: "FULL", GROUP: "GROUP", GROUPS: "GROUPS", HAVING: "HAVING",
		ILIKE: "ILIKE", IN: "IN", INNER: "INNER", INTERSECT: "INTERSECT", INTERVAL: "INTERVAL",
		IS: "IS", JOIN: "JOIN", LAST: "LAST", LATERAL: "LATERAL", LEFT: "LEFT", LIKE: "LIKE",
		LIMIT: "LIMIT", NATURAL: "NATURAL", NEXT: "NEXT", NOT: "NOT", NULL: "NULL",
		NULLS: "NULLS", OFFSET: "OFFSET", ON: "ON", ONLY: "ONLY", OR: "OR", ORDER: "ORDER",
		OUTER: "OUTER", OVER: "OVER", PARTITION: "PARTITION", PRECEDING: "PRECEDING",
		QUALIFY: "QUALIFY", RANGE: "RANGE", RECURSIVE: "RECURSIVE", RIGHT: "RIGHT",
		ROW: "ROW", ROWS: "ROWS", SELECT: "SELECT", THEN: "THEN", TOP: "TOP", TRUE: "TRUE",
		UNBOUNDED: "UNBOUNDED", UNION: "UNION", USING: "USING", WHEN: "WHEN",
		WHERE: "WHERE", WINDOW: "WINDOW", WITH: "WITH", WITHIN: "WITHIN",
	} {
		tokenNames[t] = name
		keywords[toLower(name)] = t
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// LookupIdent returns the keyword token type for a lowercase identifier,
// or IDENT when it is not a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t > keywordStart && t < keywordEnd
}

// reserved keywords can never stand in for an identifier.
var reserved = map[TokenType]struct{}{
	ALL: {}, AND: {}, AS: {}, BETWEEN: {}, BY: {}, CASE: {}, CAST: {}, CROSS: {},
	DISTINCT: {}, ELSE: {}, END: {}, EXCEPT: {}, EXISTS: {}, FALSE: {}, FETCH: {},
	FROM: {}, FULL: {}, GROUP: {}, HAVING: {}, ILIKE: {}, IN: {}, INNER: {},
	INTERSECT: {}, IS: {}, JOIN: {}, LATERAL: {}, LEFT: {}, LIKE: {}, LIMIT: {},
	NATURAL: {}, NOT: {}, NULL: {}, OFFSET: {}, ON: {}, OR: {}, ORDER: {}, OUTER: {},
	OVER: {}, QUALIFY: {}, RIGHT: {}, SELECT: {}, THEN: {}, TRUE: {}, UNION: {},
	USING: {}, WHEN: {}, WHERE: {}, WINDOW: {}, WITH: {},
}

// IsReserved returns true if the keyword can not be used as a bare identifier.
func IsReserved(t TokenType) bool {
	_, ok := reserved[t]
	return ok
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Quoted  bool // identifier was delimited (`x`, "x", [x])
	Pos     Position
}
