package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

func ident(name string) *Ident { return &Ident{Value: name} }

func TestInspect_VisitsNestedQueries(t *testing.T) {
	inner := &Query{Body: &Select{
		Columns: []SelectItem{{Expr: ident("x")}},
		From:    &FromClause{Source: &TableName{Parts: []Ident{{Value: "t2"}}}},
	}}
	q := &Query{Body: &Select{
		Columns: []SelectItem{
			{Expr: &BinaryExpr{Left: ident("a"), Op: token.PLUS, Right: ident("b")}},
			{Expr: &SubqueryExpr{Query: inner}},
		},
		From: &FromClause{Source: &TableName{Parts: []Ident{{Value: "t1"}}}},
	}}

	var idents, tables []string
	Inspect(q, func(n Node) bool {
		switch v := n.(type) {
		case *Ident:
			idents = append(idents, v.Value)
		case *TableName:
			tables = append(tables, v.Name())
		}
		return true
	})

	assert.Equal(t, []string{"a", "b", "x"}, idents)
	assert.Equal(t, []string{"t2", "t1"}, tables)
}

func TestInspect_SkipsChildrenWhenFalse(t *testing.T) {
	expr := &FuncCall{
		Name: []Ident{{Value: "f"}},
		Args: []FuncArg{{Value: ident("a")}},
	}
	count := 0
	Inspect(expr, func(n Node) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestInspect_NilSafe(t *testing.T) {
	var q *Query
	called := false
	Inspect(q, func(Node) bool { called = true; return true })
	assert.False(t, called)

	Inspect(&Select{}, func(Node) bool { return true })
}

func TestKinds(t *testing.T) {
	tests := []struct {
		node Node
		want Kind
	}{
		{ident("a"), KindIdentifier},
		{&CompoundIdent{Parts: []Ident{{Value: "t"}, {Value: "a"}}}, KindCompoundIdentifier},
		{&BinaryExpr{}, KindBinaryOp},
		{&UnaryExpr{}, KindUnaryOp},
		{&CaseExpr{}, KindCase},
		{&FuncCall{}, KindFunction},
		{&ParenExpr{}, KindNested},
		{&Literal{}, KindLiteral},
		{&TableName{}, KindTableFactor},
		{&Query{}, KindQuery},
		{&SetOperation{}, KindSetOperation},
		{&CastExpr{}, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.Kind())
		})
	}
}

func TestNames(t *testing.T) {
	tn := &TableName{Parts: []Ident{{Value: "db"}, {Value: "tbl"}}, Alias: Ident{Value: "x"}}
	assert.Equal(t, "db.tbl", tn.Name())
	assert.Equal(t, "tbl", tn.Base())
	assert.Equal(t, "db", tn.Qualifier())
	assert.Equal(t, "x", tn.RefName())

	c := &CompoundIdent{Parts: []Ident{{Value: "s"}, {Value: "t"}, {Value: "c"}}}
	require.Equal(t, "s.t.c", c.String())
	assert.Equal(t, "c", c.Column())
	assert.Equal(t, "s.t", c.Qualifier())
}
