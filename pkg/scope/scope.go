// Package scope builds the lexical scope tree of a parsed query.
//
// A Scope mirrors one level of query nesting: the sources named in its
// FROM clause, the CTEs it declares, and the child scopes for CTE bodies,
// derived tables, expression subqueries, set-operation branches and
// table-valued functions. Scopes own their children; the tree never
// carries back-references.
package scope

import (
	"errors"

	"github.com/leapstack-labs/sqllineage/internal/orderedset"
	"github.com/leapstack-labs/sqllineage/pkg/ast"
)

// DefaultMaxDepth bounds query nesting during scope construction.
const DefaultMaxDepth = 128

// ErrMaxDepth is returned when a query nests deeper than the configured limit.
var ErrMaxDepth = errors.New("maximum nesting depth exceeded")

// Kind identifies how a scope was introduced.
type Kind int

// Scope kinds.
const (
	KindRoot Kind = iota
	KindCTE
	KindDerivedTable
	KindSubquery
	KindUnion
	KindUDTF
)

var kindNames = [...]string{
	KindRoot:         "root",
	KindCTE:          "cte",
	KindDerivedTable: "derived_table",
	KindSubquery:     "subquery",
	KindUnion:        "union",
	KindUDTF:         "udtf",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// SourceInfo describes one named source visible in a scope.
type SourceInfo struct {
	// Expression is the FROM item: *ast.TableName, *ast.DerivedTable or
	// *ast.TableFunction.
	Expression ast.TableRef
	// IsScope is true when the source resolves through a nested scope
	// (CTE, derived table or table function) rather than a base table.
	IsScope bool
	// Scope is the nested scope when IsScope is set.
	Scope *Scope
}

// Table returns the base table behind the source, or nil.
func (si SourceInfo) Table() *ast.TableName {
	if si.IsScope {
		return nil
	}
	tn, _ := si.Expression.(*ast.TableName)
	return tn
}

// Scope is one level of query nesting.
type Scope struct {
	Kind Kind

	// Query is set for scopes built from a full query (root, CTE bodies,
	// derived tables, subqueries and parenthesized set branches).
	Query *ast.Query
	// Select is the projection owner. It is nil for compound scopes, whose
	// output comes from UnionScopes by ordinal position.
	Select *ast.Select
	// Function is set for KindUDTF scopes.
	Function *ast.TableFunction
	// ColumnAliases renames the output columns by position, as in
	// name(a, b) AS (...) or (...) AS t(a, b).
	ColumnAliases []string

	Sources    *orderedset.Map[string, SourceInfo]
	CTESources *orderedset.Map[string, *ast.CTE]

	CTEScopes          []*Scope
	DerivedTableScopes []*Scope
	SubqueryScopes     []*Scope
	UnionScopes        []*Scope
	UDTFScopes         []*Scope

	// ctes holds every CTE visible at this level, own and inherited.
	ctes map[string]*Scope
	// items lists every FROM item in order, including ones whose key was
	// later shadowed in Sources.
	items []SourceInfo
}

func newScope(kind Kind, visible map[string]*Scope) *Scope {
	ctes := make(map[string]*Scope, len(visible))
	for k, v := range visible {
		ctes[k] = v
	}
	return &Scope{
		Kind:       kind,
		Sources:    orderedset.NewMap[string, SourceInfo](),
		CTESources: orderedset.NewMap[string, *ast.CTE](),
		ctes:       ctes,
	}
}

// IsCompound reports whether the scope's output is the positional merge of
// its union branches.
func (s *Scope) IsCompound() bool {
	return s.Select == nil && s.Function == nil && len(s.UnionScopes) > 0
}

// CTE returns the scope of the CTE named name if it is visible here.
func (s *Scope) CTE(name string) (*Scope, bool) {
	c, ok := s.ctes[name]
	return c, ok
}

// SubqueryScope returns the child scope built for the expression subquery q.
func (s *Scope) SubqueryScope(q *ast.Query) (*Scope, bool) {
	for _, c := range s.SubqueryScopes {
		if c.Query == q {
			return c, true
		}
	}
	return nil, false
}
