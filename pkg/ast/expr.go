package ast

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Ident is a single identifier. Quoted records that it was delimited in
// the source so the generator can delimit it again.
type Ident struct {
	Value  string
	Quoted bool
}

// CompoundIdent is a dotted reference such as t.col or db.t.col.
type CompoundIdent struct {
	Parts []Ident
}

// String joins the parts with dots, without quoting.
func (c *CompoundIdent) String() string {
	return JoinIdents(c.Parts)
}

// Column returns the last part.
func (c *CompoundIdent) Column() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[len(c.Parts)-1].Value
}

// Qualifier returns everything before the last part, joined with dots.
func (c *CompoundIdent) Qualifier() string {
	if len(c.Parts) < 2 {
		return ""
	}
	return JoinIdents(c.Parts[:len(c.Parts)-1])
}

// JoinIdents joins identifier values with dots.
func JoinIdents(parts []Ident) string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Value
	}
	return strings.Join(names, ".")
}

// BinaryExpr is a binary operation (a + b, a AND b, a = b).
type BinaryExpr struct {
	Left  Expr
	Op    token.TokenType
	Right Expr
}

// UnaryExpr is a prefix operation (NOT x, -x).
type UnaryExpr struct {
	Op   token.TokenType
	Expr Expr
}

// CaseExpr is CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	Operand Expr // nil for searched CASE
	Whens   []WhenClause
	Else    Expr
}

// WhenClause is one WHEN/THEN pair.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// FuncArg is a function argument; Name is set for named arguments
// (name => value).
type FuncArg struct {
	Name  string
	Value Expr
}

// FuncCall is a function or aggregate call.
type FuncCall struct {
	Name     []Ident // possibly qualified, e.g. dataset.fn
	Distinct bool
	Star     bool // COUNT(*)
	Args     []FuncArg
	OrderBy  []OrderByItem // ordered-set arguments: f(x ORDER BY y)
	Within   []OrderByItem // WITHIN GROUP (ORDER BY ...)
	Filter   Expr
	Window   *WindowSpec
}

// FuncName returns the dot-joined function name.
func (f *FuncCall) FuncName() string {
	return JoinIdents(f.Name)
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

// LiteralKind is the lexical class of a literal.
type LiteralKind int

const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a constant value.
type Literal struct {
	Type  LiteralKind
	Value string
}

// SubqueryExpr is a query in expression position.
type SubqueryExpr struct {
	Query *Query
}

// CastExpr is CAST(x AS t), TRY_CAST / SAFE_CAST, or x::t.
type CastExpr struct {
	Expr      Expr
	TypeName  string
	Func      string // CAST, TRY_CAST, SAFE_CAST
	Shorthand bool   // written as x::t
}

// InExpr is x [NOT] IN (list | subquery).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *Query
}

// BetweenExpr is x [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// IsExpr is x IS [NOT] NULL|TRUE|FALSE.
type IsExpr struct {
	Expr  Expr
	Not   bool
	Value token.TokenType // NULL, TRUE or FALSE
}

// LikeExpr is x [NOT] LIKE|ILIKE pattern.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Op      token.TokenType
	Pattern Expr
}

// ExistsExpr is [NOT] EXISTS (query).
type ExistsExpr struct {
	Not   bool
	Query *Query
}

// StarExpr is * or qualifier.* inside an expression.
type StarExpr struct {
	Qualifier []Ident
}

// IntervalExpr is INTERVAL value [unit].
type IntervalExpr struct {
	Value Expr
	Unit  string
}

// ParamExpr is a bind parameter.
type ParamExpr struct {
	Text string
}

// ExtractExpr is EXTRACT(field FROM x).
type ExtractExpr struct {
	Field string
	Expr  Expr
}

// IndexExpr is a subscript, x[i].
type IndexExpr struct {
	Expr  Expr
	Index Expr
}

// WindowSpec is an OVER clause. Name is set for OVER w.
type WindowSpec struct {
	Name        string
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameSpec is a window frame.
type FrameSpec struct {
	Type  token.TokenType // ROWS, RANGE, GROUPS
	Start FrameBound
	End   *FrameBound
}

// FrameBoundType is the shape of a frame bound.
type FrameBoundType int

const (
	FrameUnboundedPreceding FrameBoundType = iota
	FrameUnboundedFollowing
	FrameCurrentRow
	FrameExprPreceding
	FrameExprFollowing
)

// FrameBound is one end of a frame.
type FrameBound struct {
	Type   FrameBoundType
	Offset Expr
}

// OrderByItem is an ORDER BY element.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

func (*Ident) Kind() Kind         { return KindIdentifier }
func (*CompoundIdent) Kind() Kind { return KindCompoundIdentifier }
func (*BinaryExpr) Kind() Kind    { return KindBinaryOp }
func (*UnaryExpr) Kind() Kind     { return KindUnaryOp }
func (*CaseExpr) Kind() Kind      { return KindCase }
func (*FuncCall) Kind() Kind      { return KindFunction }
func (*ParenExpr) Kind() Kind     { return KindNested }
func (*Literal) Kind() Kind       { return KindLiteral }
func (*SubqueryExpr) Kind() Kind  { return KindQuery }
func (*CastExpr) Kind() Kind      { return KindOther }
func (*InExpr) Kind() Kind        { return KindOther }
func (*BetweenExpr) Kind() Kind   { return KindOther }
func (*IsExpr) Kind() Kind        { return KindOther }
func (*LikeExpr) Kind() Kind      { return KindOther }
func (*ExistsExpr) Kind() Kind    { return KindOther }
func (*StarExpr) Kind() Kind      { return KindOther }
func (*IntervalExpr) Kind() Kind  { return KindOther }
func (*ParamExpr) Kind() Kind     { return KindOther }
func (*IndexExpr) Kind() Kind     { return KindOther }
func (*ExtractExpr) Kind() Kind   { return KindOther }

func (*Ident) node()         {}
func (*CompoundIdent) node() {}
func (*BinaryExpr) node()    {}
func (*UnaryExpr) node()     {}
func (*CaseExpr) node()      {}
func (*FuncCall) node()      {}
func (*ParenExpr) node()     {}
func (*Literal) node()       {}
func (*SubqueryExpr) node()  {}
func (*CastExpr) node()      {}
func (*InExpr) node()        {}
func (*BetweenExpr) node()   {}
func (*IsExpr) node()        {}
func (*LikeExpr) node()      {}
func (*ExistsExpr) node()    {}
func (*StarExpr) node()      {}
func (*IntervalExpr) node()  {}
func (*ParamExpr) node()     {}
func (*IndexExpr) node()     {}
func (*ExtractExpr) node()   {}

func (*Ident) exprNode()         {}
func (*CompoundIdent) exprNode() {}
func (*BinaryExpr) exprNode()    {}
func (*UnaryExpr) exprNode()     {}
func (*CaseExpr) exprNode()      {}
func (*FuncCall) exprNode()      {}
func (*ParenExpr) exprNode()     {}
func (*Literal) exprNode()       {}
func (*SubqueryExpr) exprNode()  {}
func (*CastExpr) exprNode()      {}
func (*InExpr) exprNode()        {}
func (*BetweenExpr) exprNode()   {}
func (*IsExpr) exprNode()        {}
func (*LikeExpr) exprNode()      {}
func (*ExistsExpr) exprNode()    {}
func (*StarExpr) exprNode()      {}
func (*IntervalExpr) exprNode()  {}
func (*ParamExpr) exprNode()     {}
func (*IndexExpr) exprNode()     {}
func (*ExtractExpr) exprNode()   {}
