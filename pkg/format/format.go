// Package format renders syntax trees back to SQL text for a dialect.
//
// Output is a single line with upper-case keywords. Identifiers keep their
// written spelling and are delimited with the dialect's quote characters
// when they were quoted in the source or cannot be written bare.
package format

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

// ErrNilNode is returned when Generate is given no node.
var ErrNilNode = errors.New("format: nil node")

// UnsupportedNodeError reports a node the generator has no rendering for.
type UnsupportedNodeError struct {
	Node ast.Node
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("format: unsupported node %T", e.Node)
}

// Generate renders node as SQL in dialect d. A nil dialect selects the
// generic dialect.
func Generate(node ast.Node, d *dialect.Dialect) (string, error) {
	if node == nil {
		return "", ErrNilNode
	}
	if d == nil {
		d = dialect.Generic
	}
	p := newPrinter(d)
	p.formatNode(node)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}

// MustGenerate is like Generate but panics on error. For tests and
// trees built in code.
func MustGenerate(node ast.Node, d *dialect.Dialect) string {
	s, err := Generate(node, d)
	if err != nil {
		panic(err)
	}
	return s
}

func (p *Printer) formatNode(node ast.Node) {
	switch n := node.(type) {
	case *ast.Query:
		p.formatQuery(n)
	case *ast.Select:
		p.formatSelect(n, nil)
	case *ast.SetOperation:
		p.formatSetExpr(n)
	case *ast.RawStatement:
		p.write(n.Text)
	case ast.TableRef:
		p.formatTableRef(n)
	case ast.Expr:
		p.formatExpr(n)
	default:
		p.fail(node)
	}
}
