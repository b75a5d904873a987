package ast

import "github.com/leapstack-labs/sqllineage/pkg/token"

// FromClause is a FROM source followed by its joins.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join is one JOIN step. Type is one of INNER, LEFT, RIGHT, FULL, CROSS
// or COMMA for the implicit join of a comma-separated list.
type Join struct {
	Type      token.TokenType
	Natural   bool
	Right     TableRef
	Condition Expr
	Using     []Ident
}

// TableName is a named relation, optionally qualified and aliased.
type TableName struct {
	Parts []Ident
	Alias Ident
}

// Name returns the dot-joined written name without the alias.
func (t *TableName) Name() string {
	return JoinIdents(t.Parts)
}

// Base returns the last name part.
func (t *TableName) Base() string {
	if len(t.Parts) == 0 {
		return ""
	}
	return t.Parts[len(t.Parts)-1].Value
}

// Qualifier returns the parts before the last one, joined with dots.
func (t *TableName) Qualifier() string {
	if len(t.Parts) < 2 {
		return ""
	}
	return JoinIdents(t.Parts[:len(t.Parts)-1])
}

// RefName returns the name the table is referenced by in its query: the
// alias if present, otherwise the full written name.
func (t *TableName) RefName() string {
	if t.Alias.Value != "" {
		return t.Alias.Value
	}
	return t.Name()
}

// DerivedTable is a subquery in FROM position.
type DerivedTable struct {
	Lateral       bool
	Query         *Query
	Alias         Ident
	ColumnAliases []Ident
}

// TableFunction is a table-valued function call in FROM position.
type TableFunction struct {
	Lateral       bool
	Func          *FuncCall
	Alias         Ident
	ColumnAliases []Ident
}

// ParenJoin is a parenthesized join tree: FROM (a JOIN b ON ...).
type ParenJoin struct {
	From  *FromClause
	Alias Ident
}

func (*TableName) Kind() Kind     { return KindTableFactor }
func (*DerivedTable) Kind() Kind  { return KindTableFactor }
func (*TableFunction) Kind() Kind { return KindTableFactor }
func (*ParenJoin) Kind() Kind     { return KindTableFactor }

func (*TableName) node()     {}
func (*DerivedTable) node()  {}
func (*TableFunction) node() {}
func (*ParenJoin) node()     {}

func (*TableName) tableRefNode()     {}
func (*DerivedTable) tableRefNode()  {}
func (*TableFunction) tableRefNode() {}
func (*ParenJoin) tableRefNode()     {}
