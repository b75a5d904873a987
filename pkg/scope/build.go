package scope

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
)

// Option configures Build.
type Option func(*builder)

// WithMaxDepth sets the nesting limit. Values below one keep the default.
func WithMaxDepth(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

type builder struct {
	maxDepth int
}

// Build constructs the scope tree for q.
func Build(q *ast.Query, opts ...Option) (*Scope, error) {
	if q == nil {
		return nil, fmt.Errorf("scope: nil query")
	}
	b := &builder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(b)
	}
	return b.buildQuery(q, KindRoot, nil, 0)
}

func (b *builder) check(depth int) error {
	if depth > b.maxDepth {
		return fmt.Errorf("%w: limit %d", ErrMaxDepth, b.maxDepth)
	}
	return nil
}

// buildQuery builds the scope of a full query. visible holds the CTEs
// declared by enclosing queries.
func (b *builder) buildQuery(q *ast.Query, kind Kind, visible map[string]*Scope, depth int) (*Scope, error) {
	if err := b.check(depth); err != nil {
		return nil, err
	}
	s := newScope(kind, visible)
	s.Query = q

	if q.With != nil {
		for _, cte := range q.With.CTEs {
			// The body sees only CTEs declared before this one.
			child, err := b.buildQuery(cte.Query, KindCTE, s.ctes, depth+1)
			if err != nil {
				return nil, err
			}
			child.ColumnAliases = identValues(cte.Columns)
			s.CTESources.Set(cte.Name.Value, cte)
			s.CTEScopes = append(s.CTEScopes, child)
			s.ctes[cte.Name.Value] = child
		}
	}

	if err := b.buildBody(s, q.Body, depth); err != nil {
		return nil, err
	}
	for _, item := range q.OrderBy {
		if err := b.addSubqueries(s, item.Expr, depth); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (b *builder) buildBody(s *Scope, body ast.SetExpr, depth int) error {
	switch body := body.(type) {
	case *ast.Select:
		s.Select = body
		return b.addSelect(s, body, depth)
	case *ast.SetOperation:
		for _, branch := range flattenSetOperation(body) {
			child, err := b.buildBranch(branch, s.ctes, depth+1)
			if err != nil {
				return err
			}
			s.UnionScopes = append(s.UnionScopes, child)
		}
	case *ast.Query:
		child, err := b.buildQuery(body, KindUnion, s.ctes, depth+1)
		if err != nil {
			return err
		}
		s.UnionScopes = append(s.UnionScopes, child)
	}
	return nil
}

func (b *builder) buildBranch(branch ast.SetExpr, visible map[string]*Scope, depth int) (*Scope, error) {
	if q, ok := branch.(*ast.Query); ok {
		return b.buildQuery(q, KindUnion, visible, depth)
	}
	if err := b.check(depth); err != nil {
		return nil, err
	}
	s := newScope(KindUnion, visible)
	if err := b.buildBody(s, branch, depth); err != nil {
		return nil, err
	}
	return s, nil
}

// flattenSetOperation returns the branches of a chain of set operations in
// source order. Parenthesized branches stay whole.
func flattenSetOperation(op *ast.SetOperation) []ast.SetExpr {
	var out []ast.SetExpr
	var walk func(e ast.SetExpr)
	walk = func(e ast.SetExpr) {
		if so, ok := e.(*ast.SetOperation); ok {
			walk(so.Left)
			walk(so.Right)
			return
		}
		out = append(out, e)
	}
	walk(op)
	return out
}

func (b *builder) addSelect(s *Scope, sel *ast.Select, depth int) error {
	if sel.From != nil {
		if err := b.addFrom(s, sel.From, depth); err != nil {
			return err
		}
	}

	exprs := make([]ast.Expr, 0, len(sel.Columns)+len(sel.GroupBy)+3)
	for _, item := range sel.Columns {
		exprs = append(exprs, item.Expr)
	}
	exprs = append(exprs, sel.Where)
	exprs = append(exprs, sel.GroupBy...)
	exprs = append(exprs, sel.Having, sel.Qualify)
	if sel.From != nil {
		for _, j := range sel.From.Joins {
			exprs = append(exprs, j.Condition)
		}
	}
	for _, e := range exprs {
		if err := b.addSubqueries(s, e, depth); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addFrom(s *Scope, from *ast.FromClause, depth int) error {
	if err := b.addTableRef(s, from.Source, depth); err != nil {
		return err
	}
	for _, j := range from.Joins {
		if err := b.addTableRef(s, j.Right, depth); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addTableRef(s *Scope, ref ast.TableRef, depth int) error {
	switch ref := ref.(type) {
	case *ast.TableName:
		si := SourceInfo{Expression: ref}
		if len(ref.Parts) == 1 {
			if cte, ok := s.ctes[ref.Base()]; ok {
				si.IsScope = true
				si.Scope = cte
			}
		}
		s.addSource(ref.RefName(), si)

	case *ast.DerivedTable:
		child, err := b.buildQuery(ref.Query, KindDerivedTable, s.ctes, depth+1)
		if err != nil {
			return err
		}
		child.ColumnAliases = identValues(ref.ColumnAliases)
		s.DerivedTableScopes = append(s.DerivedTableScopes, child)
		s.addSource(ref.Alias.Value, SourceInfo{Expression: ref, IsScope: true, Scope: child})

	case *ast.TableFunction:
		if err := b.check(depth + 1); err != nil {
			return err
		}
		child := newScope(KindUDTF, s.ctes)
		child.Function = ref
		child.ColumnAliases = identValues(ref.ColumnAliases)
		if ref.Func != nil {
			for _, arg := range ref.Func.Args {
				if err := b.addSubqueries(child, arg.Value, depth+1); err != nil {
					return err
				}
			}
		}
		key := ref.Alias.Value
		if key == "" && ref.Func != nil {
			key = ref.Func.FuncName()
		}
		s.UDTFScopes = append(s.UDTFScopes, child)
		s.addSource(key, SourceInfo{Expression: ref, IsScope: true, Scope: child})

	case *ast.ParenJoin:
		if ref.From != nil {
			return b.addFrom(s, ref.From, depth)
		}
	}
	return nil
}

func (s *Scope) addSource(key string, si SourceInfo) {
	s.items = append(s.items, si)
	s.Sources.Set(key, si)
}

// addSubqueries builds a child scope for every query nested in e without
// descending into those queries.
func (b *builder) addSubqueries(s *Scope, e ast.Expr, depth int) error {
	if e == nil {
		return nil
	}
	var err error
	ast.Inspect(e, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		q, ok := n.(*ast.Query)
		if !ok {
			return true
		}
		var child *Scope
		child, err = b.buildQuery(q, KindSubquery, s.ctes, depth+1)
		if err == nil {
			s.SubqueryScopes = append(s.SubqueryScopes, child)
		}
		return false
	})
	return err
}

func identValues(ids []ast.Ident) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Value
	}
	return out
}
