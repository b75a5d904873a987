// Package ast defines the syntax tree produced by the parser.
//
// The tree is a closed sum type: every node reports one of a fixed set of
// Kinds, and the marker methods below are unexported so no package outside
// ast can add variants. Consumers match nodes with type switches.
package ast

// Kind classifies a node into the variant set consumers switch over.
type Kind int

const (
	KindIdentifier Kind = iota
	KindCompoundIdentifier
	KindBinaryOp
	KindUnaryOp
	KindCase
	KindFunction
	KindNested
	KindLiteral
	KindTableFactor
	KindQuery
	KindSetOperation
	KindOther
)

var kindNames = [...]string{
	KindIdentifier:         "Identifier",
	KindCompoundIdentifier: "CompoundIdentifier",
	KindBinaryOp:           "BinaryOp",
	KindUnaryOp:            "UnaryOp",
	KindCase:               "Case",
	KindFunction:           "Function",
	KindNested:             "Nested",
	KindLiteral:            "Literal",
	KindTableFactor:        "TableFactor",
	KindQuery:              "Query",
	KindSetOperation:       "SetOperation",
	KindOther:              "Other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is implemented by every syntax tree node.
type Node interface {
	Kind() Kind
	node()
}

// Expr is a scalar expression.
type Expr interface {
	Node
	exprNode()
}

// TableRef is an item of a FROM clause.
type TableRef interface {
	Node
	tableRefNode()
}

// SetExpr is the body of a query: a SELECT, a set operation, or a
// parenthesized query.
type SetExpr interface {
	Node
	setExprNode()
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	stmtNode()
}
