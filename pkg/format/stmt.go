package format

import (
	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// wrapAlias names the derived table used to cap a compound query in TOP
// dialects.
const wrapAlias = "_q"

func (p *Printer) formatQuery(q *ast.Query) {
	if q.With != nil {
		p.formatWith(q.With)
	}

	lim := q.Limit
	top := p.dialect.Limit == dialect.LimitTop && lim != nil && lim.Count != nil && lim.Offset == nil

	if top {
		if sel, ok := q.Body.(*ast.Select); ok {
			p.formatSelect(sel, lim.Count)
			p.formatOrderBy(q.OrderBy)
			return
		}
		// TOP only attaches to a SELECT block, so cap the compound body
		// through a derived table.
		p.kw(token.SELECT, token.TOP)
		p.space()
		p.formatExpr(lim.Count)
		p.write(" * ")
		p.kw(token.FROM)
		p.write(" (")
		p.formatSetExpr(q.Body)
		p.write(") ")
		p.kw(token.AS)
		p.space()
		p.write(wrapAlias)
		p.formatOrderBy(q.OrderBy)
		return
	}

	p.formatSetExpr(q.Body)
	p.formatOrderBy(q.OrderBy)
	p.formatLimit(lim)
}

func (p *Printer) formatWith(w *ast.With) {
	p.kw(token.WITH)
	p.space()
	if w.Recursive {
		p.kw(token.RECURSIVE)
		p.space()
	}
	p.formatList(len(w.CTEs), func(i int) {
		cte := w.CTEs[i]
		p.formatIdent(cte.Name)
		if len(cte.Columns) > 0 {
			p.write(" (")
			p.formatIdents(cte.Columns, ", ")
			p.write(")")
		}
		p.space()
		p.kw(token.AS)
		p.write(" (")
		if cte.Query != nil {
			p.formatQuery(cte.Query)
		}
		p.write(")")
	}, ", ")
	p.space()
}

func (p *Printer) formatOrderBy(items []ast.OrderByItem) {
	if len(items) == 0 {
		return
	}
	p.space()
	p.kw(token.ORDER, token.BY)
	p.space()
	p.formatOrderItems(items)
}

func (p *Printer) formatOrderItems(items []ast.OrderByItem) {
	p.formatList(len(items), func(i int) {
		item := items[i]
		p.formatExpr(item.Expr)
		if item.Desc {
			p.space()
			p.kw(token.DESC)
		}
		if item.NullsFirst != nil {
			p.space()
			if *item.NullsFirst {
				p.kw(token.NULLS, token.FIRST)
			} else {
				p.kw(token.NULLS, token.LAST)
			}
		}
	}, ", ")
}

// formatLimit writes the row cap in the dialect's syntax. TOP dialects
// reach here only when an offset forces OFFSET/FETCH.
func (p *Printer) formatLimit(lim *ast.Limit) {
	if lim == nil {
		return
	}
	switch p.dialect.Limit {
	case dialect.LimitClause:
		if lim.Count != nil {
			p.space()
			p.kw(token.LIMIT)
			p.space()
			p.formatExpr(lim.Count)
		}
		if lim.Offset != nil {
			p.space()
			p.kw(token.OFFSET)
			p.space()
			p.formatExpr(lim.Offset)
		}
	default:
		if lim.Offset != nil {
			p.space()
			p.kw(token.OFFSET)
			p.space()
			p.formatExpr(lim.Offset)
			p.space()
			p.kw(token.ROWS)
		}
		if lim.Count != nil {
			p.space()
			if lim.Offset != nil {
				p.kw(token.FETCH, token.NEXT)
			} else {
				p.kw(token.FETCH, token.FIRST)
			}
			p.space()
			p.formatExpr(lim.Count)
			p.space()
			p.kw(token.ROWS, token.ONLY)
		}
	}
}

func (p *Printer) formatSetExpr(body ast.SetExpr) {
	switch b := body.(type) {
	case *ast.Select:
		p.formatSelect(b, nil)
	case *ast.SetOperation:
		p.formatSetExpr(b.Left)
		p.space()
		p.kw(b.Op)
		if b.All {
			p.space()
			p.kw(token.ALL)
		}
		p.space()
		p.formatSetExpr(b.Right)
	case *ast.Query:
		p.write("(")
		p.formatQuery(b)
		p.write(")")
	default:
		p.fail(body)
	}
}

// formatSelect writes one SELECT block. A non-nil top replaces the block's
// own TOP operand.
func (p *Printer) formatSelect(sel *ast.Select, top ast.Expr) {
	p.kw(token.SELECT)
	if sel.Distinct {
		p.space()
		p.kw(token.DISTINCT)
	}
	if top == nil {
		top = sel.Top
	}
	if top != nil {
		p.space()
		p.kw(token.TOP)
		p.space()
		p.formatExpr(top)
	}
	p.space()
	p.formatList(len(sel.Columns), func(i int) { p.formatSelectItem(sel.Columns[i]) }, ", ")

	if sel.From != nil {
		p.space()
		p.kw(token.FROM)
		p.space()
		p.formatFrom(sel.From)
	}
	if sel.Where != nil {
		p.space()
		p.kw(token.WHERE)
		p.space()
		p.formatExpr(sel.Where)
	}
	if len(sel.GroupBy) > 0 {
		p.space()
		p.kw(token.GROUP, token.BY)
		p.space()
		p.formatExprs(sel.GroupBy)
	}
	if sel.Having != nil {
		p.space()
		p.kw(token.HAVING)
		p.space()
		p.formatExpr(sel.Having)
	}
	if sel.Qualify != nil {
		p.space()
		p.kw(token.QUALIFY)
		p.space()
		p.formatExpr(sel.Qualify)
	}
	if len(sel.Windows) > 0 {
		p.space()
		p.kw(token.WINDOW)
		p.space()
		p.formatList(len(sel.Windows), func(i int) {
			w := sel.Windows[i]
			p.formatIdent(ast.Ident{Value: w.Name})
			p.space()
			p.kw(token.AS)
			p.write(" (")
			p.formatWindowSpec(w.Spec)
			p.write(")")
		}, ", ")
	}
}

func (p *Printer) formatSelectItem(item ast.SelectItem) {
	switch {
	case item.Star:
		p.write("*")
	case len(item.TableStar) > 0:
		p.formatIdents(item.TableStar, ".")
		p.write(".*")
	default:
		p.formatExpr(item.Expr)
		if item.HasAlias() {
			p.space()
			p.kw(token.AS)
			p.space()
			p.formatIdent(item.Alias)
		}
	}
}

func (p *Printer) formatFrom(from *ast.FromClause) {
	p.formatTableRef(from.Source)
	for _, j := range from.Joins {
		p.formatJoin(j)
	}
}

func (p *Printer) formatJoin(j *ast.Join) {
	if j.Type == token.COMMA {
		p.write(", ")
		p.formatTableRef(j.Right)
		return
	}
	p.space()
	if j.Natural {
		p.kw(token.NATURAL)
		p.space()
	}
	switch j.Type {
	case token.LEFT, token.RIGHT, token.FULL, token.CROSS:
		p.kw(j.Type)
		p.space()
	}
	p.kw(token.JOIN)
	p.space()
	p.formatTableRef(j.Right)
	switch {
	case j.Condition != nil:
		p.space()
		p.kw(token.ON)
		p.space()
		p.formatExpr(j.Condition)
	case len(j.Using) > 0:
		p.space()
		p.kw(token.USING)
		p.write(" (")
		p.formatIdents(j.Using, ", ")
		p.write(")")
	}
}

func (p *Printer) formatTableRef(ref ast.TableRef) {
	switch t := ref.(type) {
	case *ast.TableName:
		p.formatIdents(t.Parts, ".")
		p.formatTableAlias(t.Alias, nil)
	case *ast.DerivedTable:
		if t.Lateral {
			p.kw(token.LATERAL)
			p.space()
		}
		p.write("(")
		p.formatQuery(t.Query)
		p.write(")")
		p.formatTableAlias(t.Alias, t.ColumnAliases)
	case *ast.TableFunction:
		if t.Lateral {
			p.kw(token.LATERAL)
			p.space()
		}
		p.formatFuncCall(t.Func)
		p.formatTableAlias(t.Alias, t.ColumnAliases)
	case *ast.ParenJoin:
		p.write("(")
		p.formatFrom(t.From)
		p.write(")")
		p.formatTableAlias(t.Alias, nil)
	default:
		p.fail(ref)
	}
}

func (p *Printer) formatTableAlias(alias ast.Ident, cols []ast.Ident) {
	if alias.Value == "" {
		return
	}
	p.space()
	if p.dialect.TableAliasAs() {
		p.kw(token.AS)
		p.space()
	}
	p.formatIdent(alias)
	if len(cols) > 0 {
		p.write(" (")
		p.formatIdents(cols, ", ")
		p.write(")")
	}
}
