package lineage

import "github.com/leapstack-labs/sqllineage/pkg/ast"

// FindIdents returns every column reference in expr in source order,
// duplicates included. Compound identifiers are returned dot-joined.
//
// The walk descends through operators, parentheses, every part of a CASE,
// function arguments, casts and predicate operands. Literals, window
// specifications and nested queries contribute nothing.
func FindIdents(expr ast.Expr) []string {
	refs := identRefs(expr)
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

// identRef is one column reference found by the walker.
type identRef struct {
	qualifier string
	column    string
}

func (r identRef) String() string {
	if r.qualifier == "" {
		return r.column
	}
	return r.qualifier + "." + r.column
}

func identRefs(expr ast.Expr) []identRef {
	var out []identRef
	findIdents(expr, &out)
	return out
}

func findIdents(expr ast.Expr, out *[]identRef) {
	switch e := expr.(type) {
	case nil:
	case *ast.Ident:
		*out = append(*out, identRef{column: e.Value})
	case *ast.CompoundIdent:
		*out = append(*out, identRef{qualifier: e.Qualifier(), column: e.Column()})
	case *ast.BinaryExpr:
		findIdents(e.Left, out)
		findIdents(e.Right, out)
	case *ast.UnaryExpr:
		findIdents(e.Expr, out)
	case *ast.ParenExpr:
		findIdents(e.Expr, out)
	case *ast.CaseExpr:
		findIdents(e.Operand, out)
		for _, w := range e.Whens {
			findIdents(w.Condition, out)
			findIdents(w.Result, out)
		}
		findIdents(e.Else, out)
	case *ast.FuncCall:
		if e == nil {
			return
		}
		for _, arg := range e.Args {
			findIdents(arg.Value, out)
		}
	case *ast.CastExpr:
		findIdents(e.Expr, out)
	case *ast.InExpr:
		findIdents(e.Expr, out)
		for _, v := range e.Values {
			findIdents(v, out)
		}
	case *ast.BetweenExpr:
		findIdents(e.Expr, out)
		findIdents(e.Low, out)
		findIdents(e.High, out)
	case *ast.IsExpr:
		findIdents(e.Expr, out)
	case *ast.LikeExpr:
		findIdents(e.Expr, out)
		findIdents(e.Pattern, out)
	case *ast.IndexExpr:
		findIdents(e.Expr, out)
	}
}
