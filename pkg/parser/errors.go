package parser

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// ErrMaxDepth is wrapped by a ParseError when a query nests deeper than the
// parser's limit.
var ErrMaxDepth = errors.New("maximum nesting depth exceeded")

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken      = "unexpected token %s, expected %s"
	ErrUnterminatedString   = "unterminated string literal"
	ErrUnterminatedIdent    = "unterminated quoted identifier"
	ErrUnterminatedComment  = "unterminated block comment"
	ErrUnexpectedCharacter  = "unexpected character %q"
	ErrExpectedExpression   = "expected expression, got %s"
	ErrExpectedIdentifier   = "expected identifier, got %s"
	ErrExpectedEndOfStmt    = "unexpected token %s, expected end of statement"
	ErrUnsupportedClause    = "%s is not supported in %s dialect"
	ErrNestingDepthExceeded = "query nesting exceeds %d levels"
)
