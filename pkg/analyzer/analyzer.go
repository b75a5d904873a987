// Package analyzer is the request/response facade over the parser, scope
// builder, lineage builder and rewriters. Every operation takes raw SQL and
// a dialect name and returns a plain result or a structured error.
package analyzer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/scope"
)

// DefaultMaxQueryLength is the longest query ColumnLineage analyzes.
const DefaultMaxQueryLength = 10000

var (
	// ErrEmptyQuery is returned for blank input.
	ErrEmptyQuery = errors.New("cannot parse query")
	// ErrNoStatements is returned when the input holds no statement.
	ErrNoStatements = errors.New("no statements parsed")
	// ErrQueryTooLong is returned by ColumnLineage for oversized input.
	ErrQueryTooLong = errors.New("query is too long skipping column lineage analysis")
	// ErrNotQuery is returned when an operation needs a query and the
	// statement is something else.
	ErrNotQuery = errors.New("statement is not a query")
)

// Analyzer runs the analysis operations. It is safe for concurrent use.
type Analyzer struct {
	logger         *slog.Logger
	maxQueryLength int
	maxDepth       int
	cache          Cache
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Nil discards output.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxQueryLength caps the input length for ColumnLineage. Zero
// disables the cap.
func WithMaxQueryLength(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.maxQueryLength = n
		}
	}
}

// WithMaxDepth bounds query nesting in the parser, scope builder and
// lineage builder.
func WithMaxDepth(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxDepth = n
		}
	}
}

// WithCache stores results in c.
func WithCache(c Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:         slog.New(slog.DiscardHandler),
		maxQueryLength: DefaultMaxQueryLength,
		maxDepth:       scope.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// parse resolves the dialect and parses every statement in sql.
func (a *Analyzer) parse(sql, dialectName string) (*dialect.Dialect, []ast.Statement, error) {
	d, err := dialect.Parse(dialectName)
	if err != nil {
		return nil, nil, err
	}
	stmts, err := parser.Parse(sql, d, parser.WithMaxDepth(a.maxDepth))
	if err != nil {
		return nil, nil, err
	}
	return d, stmts, nil
}

// firstQuery parses sql and returns its first statement as a query.
func (a *Analyzer) firstQuery(sql, dialectName string) (*dialect.Dialect, *ast.Query, error) {
	d, stmts, err := a.parse(sql, dialectName)
	if err != nil {
		return nil, nil, err
	}
	if len(stmts) == 0 {
		return nil, nil, ErrNoStatements
	}
	q, ok := stmts[0].(*ast.Query)
	if !ok {
		return nil, nil, ErrNotQuery
	}
	return d, q, nil
}

// track logs the outcome of an operation and turns a panic into an error.
func (a *Analyzer) track(op, dialectName, sql string, start time.Time, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: internal error: %v", op, r)
		a.logger.Error("analysis panicked", "op", op, "dialect", dialectName, "panic", r)
	}
	a.logger.Debug("analysis complete",
		"op", op,
		"dialect", dialectName,
		"query_length", len(sql),
		"duration", time.Since(start),
		"error", *err,
	)
}

func isBlank(sql string) bool {
	return strings.TrimSpace(sql) == ""
}
