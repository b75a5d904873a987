package format

import (
	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

func (p *Printer) formatExprs(exprs []ast.Expr) {
	p.formatList(len(exprs), func(i int) { p.formatExpr(exprs[i]) }, ", ")
}

func (p *Printer) formatExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Ident:
		p.formatIdent(*e)
	case *ast.CompoundIdent:
		p.formatIdents(e.Parts, ".")
	case *ast.Literal:
		p.formatLiteral(e)
	case *ast.BinaryExpr:
		p.formatExpr(e.Left)
		p.space()
		p.kw(e.Op)
		p.space()
		p.formatExpr(e.Right)
	case *ast.UnaryExpr:
		p.kw(e.Op)
		if e.Op == token.NOT {
			p.space()
		}
		p.formatExpr(e.Expr)
	case *ast.ParenExpr:
		p.write("(")
		p.formatExpr(e.Expr)
		p.write(")")
	case *ast.CaseExpr:
		p.formatCase(e)
	case *ast.FuncCall:
		p.formatFuncCall(e)
	case *ast.SubqueryExpr:
		p.write("(")
		p.formatQuery(e.Query)
		p.write(")")
	case *ast.CastExpr:
		if e.Shorthand {
			p.formatExpr(e.Expr)
			p.write("::")
			p.write(e.TypeName)
			return
		}
		p.write(e.Func)
		p.write("(")
		p.formatExpr(e.Expr)
		p.space()
		p.kw(token.AS)
		p.space()
		p.write(e.TypeName)
		p.write(")")
	case *ast.InExpr:
		p.formatExpr(e.Expr)
		p.space()
		if e.Not {
			p.kw(token.NOT)
			p.space()
		}
		p.kw(token.IN)
		p.write(" (")
		if e.Query != nil {
			p.formatQuery(e.Query)
		} else {
			p.formatExprs(e.Values)
		}
		p.write(")")
	case *ast.BetweenExpr:
		p.formatExpr(e.Expr)
		p.space()
		if e.Not {
			p.kw(token.NOT)
			p.space()
		}
		p.kw(token.BETWEEN)
		p.space()
		p.formatExpr(e.Low)
		p.space()
		p.kw(token.AND)
		p.space()
		p.formatExpr(e.High)
	case *ast.IsExpr:
		p.formatExpr(e.Expr)
		p.space()
		p.kw(token.IS)
		if e.Not {
			p.space()
			p.kw(token.NOT)
		}
		p.space()
		p.kw(e.Value)
	case *ast.LikeExpr:
		p.formatExpr(e.Expr)
		p.space()
		if e.Not {
			p.kw(token.NOT)
			p.space()
		}
		p.kw(e.Op)
		p.space()
		p.formatExpr(e.Pattern)
	case *ast.ExistsExpr:
		if e.Not {
			p.kw(token.NOT)
			p.space()
		}
		p.kw(token.EXISTS)
		p.write(" (")
		p.formatQuery(e.Query)
		p.write(")")
	case *ast.StarExpr:
		if len(e.Qualifier) > 0 {
			p.formatIdents(e.Qualifier, ".")
			p.write(".")
		}
		p.write("*")
	case *ast.IntervalExpr:
		p.kw(token.INTERVAL)
		p.space()
		p.formatExpr(e.Value)
		if e.Unit != "" {
			p.space()
			p.write(e.Unit)
		}
	case *ast.ParamExpr:
		p.write(e.Text)
	case *ast.IndexExpr:
		p.formatExpr(e.Expr)
		p.write("[")
		p.formatExpr(e.Index)
		p.write("]")
	case *ast.ExtractExpr:
		p.write("EXTRACT(")
		p.write(e.Field)
		p.space()
		p.kw(token.FROM)
		p.space()
		p.formatExpr(e.Expr)
		p.write(")")
	default:
		p.fail(expr)
	}
}

func (p *Printer) formatLiteral(lit *ast.Literal) {
	switch lit.Type {
	case ast.LiteralString:
		p.quoteString(lit.Value)
	case ast.LiteralBool:
		if lit.Value == "TRUE" || lit.Value == "true" {
			p.kw(token.TRUE)
		} else {
			p.kw(token.FALSE)
		}
	case ast.LiteralNull:
		p.kw(token.NULL)
	default:
		p.write(lit.Value)
	}
}

func (p *Printer) formatCase(c *ast.CaseExpr) {
	p.kw(token.CASE)
	if c.Operand != nil {
		p.space()
		p.formatExpr(c.Operand)
	}
	for _, w := range c.Whens {
		p.space()
		p.kw(token.WHEN)
		p.space()
		p.formatExpr(w.Condition)
		p.space()
		p.kw(token.THEN)
		p.space()
		p.formatExpr(w.Result)
	}
	if c.Else != nil {
		p.space()
		p.kw(token.ELSE)
		p.space()
		p.formatExpr(c.Else)
	}
	p.space()
	p.kw(token.END)
}

func (p *Printer) formatFuncCall(fn *ast.FuncCall) {
	p.formatFuncName(fn.Name)
	p.write("(")

	if fn.Distinct {
		p.kw(token.DISTINCT)
		p.space()
	}

	if fn.Star {
		p.write("*")
	} else {
		p.formatList(len(fn.Args), func(i int) {
			arg := fn.Args[i]
			if arg.Name != "" {
				p.write(arg.Name)
				p.write(" => ")
			}
			p.formatExpr(arg.Value)
		}, ", ")
	}
	if len(fn.OrderBy) > 0 {
		p.formatOrderBy(fn.OrderBy)
	}
	p.write(")")

	if len(fn.Within) > 0 {
		p.space()
		p.kw(token.WITHIN, token.GROUP)
		p.write(" (")
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatOrderItems(fn.Within)
		p.write(")")
	}

	if fn.Filter != nil {
		p.space()
		p.kw(token.FILTER)
		p.write(" (")
		p.kw(token.WHERE)
		p.space()
		p.formatExpr(fn.Filter)
		p.write(")")
	}

	if fn.Window != nil {
		p.space()
		p.kw(token.OVER)
		p.space()
		if fn.Window.Name != "" && len(fn.Window.PartitionBy) == 0 && len(fn.Window.OrderBy) == 0 && fn.Window.Frame == nil {
			p.write(fn.Window.Name)
			return
		}
		p.write("(")
		p.formatWindowSpec(fn.Window)
		p.write(")")
	}
}

// formatFuncName writes a function name. Bare names are written as
// given, even when they collide with keywords (LEFT, RIGHT).
func (p *Printer) formatFuncName(parts []ast.Ident) {
	p.formatList(len(parts), func(i int) {
		if parts[i].Quoted {
			p.formatIdent(parts[i])
			return
		}
		p.write(parts[i].Value)
	}, ".")
}

func (p *Printer) formatWindowSpec(w *ast.WindowSpec) {
	wrote := false
	sep := func() {
		if wrote {
			p.space()
		}
		wrote = true
	}

	if w.Name != "" {
		sep()
		p.write(w.Name)
	}
	if len(w.PartitionBy) > 0 {
		sep()
		p.kw(token.PARTITION, token.BY)
		p.space()
		p.formatExprs(w.PartitionBy)
	}
	if len(w.OrderBy) > 0 {
		sep()
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatOrderItems(w.OrderBy)
	}
	if w.Frame != nil {
		sep()
		p.kw(w.Frame.Type)
		p.space()
		if w.Frame.End != nil {
			p.kw(token.BETWEEN)
			p.space()
			p.formatFrameBound(w.Frame.Start)
			p.space()
			p.kw(token.AND)
			p.space()
			p.formatFrameBound(*w.Frame.End)
		} else {
			p.formatFrameBound(w.Frame.Start)
		}
	}
}

func (p *Printer) formatFrameBound(b ast.FrameBound) {
	switch b.Type {
	case ast.FrameUnboundedPreceding:
		p.kw(token.UNBOUNDED, token.PRECEDING)
	case ast.FrameUnboundedFollowing:
		p.kw(token.UNBOUNDED, token.FOLLOWING)
	case ast.FrameCurrentRow:
		p.kw(token.CURRENT, token.ROW)
	case ast.FrameExprPreceding:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.PRECEDING)
	case ast.FrameExprFollowing:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.FOLLOWING)
	}
}
