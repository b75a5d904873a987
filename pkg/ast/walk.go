package ast

// Inspect traverses the tree rooted at node depth-first, calling fn for
// each node before its children. If fn returns false the children of that
// node are skipped. Nested queries, including CTE bodies and subqueries,
// are visited.
func Inspect(node Node, fn func(Node) bool) {
	if isNil(node) || !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, fn)
	}
}

// Children returns the direct child nodes of node in source order.
func Children(node Node) []Node {
	var out []Node
	add := func(children ...Node) {
		for _, c := range children {
			if !isNil(c) {
				out = append(out, c)
			}
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			add(e)
		}
	}
	addOrder := func(items []OrderByItem) {
		for _, it := range items {
			add(it.Expr)
		}
	}
	addWindow := func(w *WindowSpec) {
		if w == nil {
			return
		}
		addExprs(w.PartitionBy)
		addOrder(w.OrderBy)
		if w.Frame != nil {
			add(w.Frame.Start.Offset)
			if w.Frame.End != nil {
				add(w.Frame.End.Offset)
			}
		}
	}
	var addFrom func(f *FromClause)
	addFrom = func(f *FromClause) {
		if f == nil {
			return
		}
		add(f.Source)
		for _, j := range f.Joins {
			add(j.Right, j.Condition)
		}
	}

	switch n := node.(type) {
	case *Query:
		if n.With != nil {
			for _, cte := range n.With.CTEs {
				add(cte.Query)
			}
		}
		add(n.Body)
		addOrder(n.OrderBy)
		if n.Limit != nil {
			add(n.Limit.Count, n.Limit.Offset)
		}
	case *Select:
		add(n.Top)
		for _, item := range n.Columns {
			add(item.Expr)
		}
		addFrom(n.From)
		add(n.Where)
		addExprs(n.GroupBy)
		add(n.Having, n.Qualify)
		for _, w := range n.Windows {
			addWindow(w.Spec)
		}
	case *SetOperation:
		add(n.Left, n.Right)
	case *TableName, *RawStatement, *Ident, *CompoundIdent, *Literal,
		*StarExpr, *ParamExpr:
	case *DerivedTable:
		add(n.Query)
	case *TableFunction:
		add(n.Func)
	case *ParenJoin:
		addFrom(n.From)
	case *BinaryExpr:
		add(n.Left, n.Right)
	case *UnaryExpr:
		add(n.Expr)
	case *CaseExpr:
		add(n.Operand)
		for _, w := range n.Whens {
			add(w.Condition, w.Result)
		}
		add(n.Else)
	case *FuncCall:
		for _, a := range n.Args {
			add(a.Value)
		}
		addOrder(n.OrderBy)
		addOrder(n.Within)
		add(n.Filter)
		addWindow(n.Window)
	case *ParenExpr:
		add(n.Expr)
	case *SubqueryExpr:
		add(n.Query)
	case *CastExpr:
		add(n.Expr)
	case *InExpr:
		add(n.Expr)
		addExprs(n.Values)
		add(n.Query)
	case *BetweenExpr:
		add(n.Expr, n.Low, n.High)
	case *IsExpr:
		add(n.Expr)
	case *LikeExpr:
		add(n.Expr, n.Pattern)
	case *ExistsExpr:
		add(n.Query)
	case *IntervalExpr:
		add(n.Value)
	case *IndexExpr:
		add(n.Expr, n.Index)
	case *ExtractExpr:
		add(n.Expr)
	}
	return out
}

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Query:
		return v == nil
	case *Select:
		return v == nil
	case *SetOperation:
		return v == nil
	case *FuncCall:
		return v == nil
	case *TableName:
		return v == nil
	case *DerivedTable:
		return v == nil
	case *TableFunction:
		return v == nil
	case *ParenJoin:
		return v == nil
	case *SubqueryExpr:
		return v == nil
	}
	return false
}
