package ast

import "github.com/leapstack-labs/sqllineage/pkg/token"

// Query is a complete query expression: an optional WITH clause, a body,
// and trailing ORDER BY / LIMIT. A parenthesized query used as a set
// operand is itself a Query.
type Query struct {
	With    *With
	Body    SetExpr
	OrderBy []OrderByItem
	Limit   *Limit
}

// With is a WITH clause.
type With struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is one named common table expression.
type CTE struct {
	Name    Ident
	Columns []Ident
	Query   *Query
}

// Limit holds the row cap of a query, whichever syntax introduced it
// (LIMIT, TOP or FETCH FIRST).
type Limit struct {
	Count  Expr
	Offset Expr
}

// Select is a single SELECT block.
type Select struct {
	Distinct bool
	Top      Expr // T-SQL TOP n written on this block
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Qualify  Expr
	Windows  []NamedWindow
}

// SelectItem is one projection. Exactly one of Expr, Star or TableStar is
// meaningful.
type SelectItem struct {
	Expr      Expr
	Alias     Ident
	Star      bool
	TableStar []Ident // t.* qualifier
}

// HasAlias reports whether the item was given an explicit alias.
func (s SelectItem) HasAlias() bool {
	return s.Alias.Value != ""
}

// NamedWindow is a WINDOW w AS (...) definition.
type NamedWindow struct {
	Name string
	Spec *WindowSpec
}

// SetOperation combines two query bodies with UNION, INTERSECT or EXCEPT.
type SetOperation struct {
	Op    token.TokenType
	All   bool
	Left  SetExpr
	Right SetExpr
}

// RawStatement is any statement other than a query. It is kept as source
// text so it survives regeneration untouched.
type RawStatement struct {
	Text string
}

func (*Query) Kind() Kind        { return KindQuery }
func (*Select) Kind() Kind       { return KindQuery }
func (*SetOperation) Kind() Kind { return KindSetOperation }
func (*RawStatement) Kind() Kind { return KindOther }

func (*Query) node()        {}
func (*Select) node()       {}
func (*SetOperation) node() {}
func (*RawStatement) node() {}

func (*Query) setExprNode()        {}
func (*Select) setExprNode()       {}
func (*SetOperation) setExprNode() {}

func (*Query) stmtNode()        {}
func (*RawStatement) stmtNode() {}
