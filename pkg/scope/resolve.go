package scope

import (
	"github.com/leapstack-labs/sqllineage/internal/orderedset"
	"github.com/leapstack-labs/sqllineage/pkg/ast"
)

// ResolutionKind classifies what a name resolves to.
type ResolutionKind int

// Resolution kinds.
const (
	Unresolved ResolutionKind = iota
	BaseTable
	NestedScope
)

// Resolution is the result of resolving a name in a scope.
type Resolution struct {
	Kind  ResolutionKind
	Table *ast.TableName // BaseTable
	Scope *Scope         // NestedScope
}

// Resolve looks name up among the sources of s. A source key matches
// exactly; an unaliased table also matches by its full or last name part.
// A visible CTE that is not a FROM item resolves last.
//
// CTE shadowing is applied when sources are registered, so a FROM item
// naming a visible CTE always resolves through the CTE's scope.
func (s *Scope) Resolve(name string) Resolution {
	if si, ok := s.Sources.Get(name); ok {
		return resolutionOf(si)
	}
	for _, si := range s.items {
		tn, ok := si.Expression.(*ast.TableName)
		if !ok || tn.Alias.Value != "" {
			continue
		}
		if tn.Name() == name || tn.Base() == name {
			return resolutionOf(si)
		}
	}
	if cte, ok := s.ctes[name]; ok {
		return Resolution{Kind: NestedScope, Scope: cte}
	}
	return Resolution{Kind: Unresolved}
}

func resolutionOf(si SourceInfo) Resolution {
	if si.IsScope {
		return Resolution{Kind: NestedScope, Scope: si.Scope}
	}
	if tn := si.Table(); tn != nil {
		return Resolution{Kind: BaseTable, Table: tn}
	}
	return Resolution{Kind: Unresolved}
}

// Tables returns the base tables reachable from s, deduplicated in
// first-seen order. Names are written as in the query, qualifiers kept.
// CTE references are never reported.
//
// Traversal order: CTE bodies in declaration order, then FROM items left
// to right (descending into derived tables and table functions in place),
// then expression subqueries, then set-operation branches.
func Tables(s *Scope) []string {
	seen := orderedset.New[string]()
	collectTables(s, seen)
	return seen.Keys()
}

func collectTables(s *Scope, seen *orderedset.Set[string]) {
	if s == nil {
		return
	}
	for _, c := range s.CTEScopes {
		collectTables(c, seen)
	}
	for _, si := range s.items {
		if tn := si.Table(); tn != nil {
			seen.Add(tn.Name())
			continue
		}
		if si.Scope != nil && si.Scope.Kind != KindCTE {
			collectTables(si.Scope, seen)
		}
	}
	for _, c := range s.SubqueryScopes {
		collectTables(c, seen)
	}
	for _, c := range s.UnionScopes {
		collectTables(c, seen)
	}
}

// GetTables builds the scope tree of q and returns its tables.
func GetTables(q *ast.Query, opts ...Option) ([]string, error) {
	s, err := Build(q, opts...)
	if err != nil {
		return nil, err
	}
	return Tables(s), nil
}
