package transform

import (
	"strconv"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
)

// SetLimit caps the outermost query at n rows, replacing any existing
// count. An existing offset is kept. A TOP written on the outer SELECT is
// cleared so the generator renders the single limit in the dialect's own
// syntax.
func SetLimit(q *ast.Query, n int64) {
	if q == nil {
		return
	}
	count := &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatInt(n, 10)}
	if q.Limit == nil {
		q.Limit = &ast.Limit{}
	}
	q.Limit.Count = count
	if sel, ok := q.Body.(*ast.Select); ok {
		sel.Top = nil
	}
}
