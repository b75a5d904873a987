// Package lineage computes column-level lineage over a scope tree.
//
// For a requested output column the builder locates the projection that
// produces it and follows every column reference in that expression through
// CTEs, derived tables, subqueries and set-operation branches until it
// reaches base-table columns. The result is a tree of Nodes whose leaves
// are the upstream columns.
package lineage

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/orderedset"
	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/scope"
)

// Option configures lineage computation.
type Option func(*builder)

// WithSchema supplies advisory table metadata.
func WithSchema(s Schema) Option {
	return func(b *builder) {
		b.schema = s
	}
}

// WithMaxDepth bounds recursion. Values below one keep the default.
func WithMaxDepth(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

type builder struct {
	schema   Schema
	maxDepth int
	names    map[*scope.Scope]nameList
}

type nameList struct {
	names []string
	// opaque is set when a star could not be expanded, so the scope may
	// produce columns beyond names.
	opaque bool
}

func newBuilder(opts []Option) *builder {
	b := &builder{
		maxDepth: scope.DefaultMaxDepth,
		names:    make(map[*scope.Scope]nameList),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Lineage builds the lineage tree of the output column named column in the
// query whose scope is root. The root node is named after the column.
func Lineage(column string, root *scope.Scope, opts ...Option) (*Node, error) {
	return newBuilder(opts).lineage(column, root)
}

func (b *builder) lineage(column string, root *scope.Scope) (*Node, error) {
	children, err := b.column(root, column, 0)
	if err != nil {
		return nil, err
	}
	return &Node{Name: column, Downstream: children}, nil
}

func (b *builder) check(depth int) error {
	if depth > b.maxDepth {
		return fmt.Errorf("%w: limit %d", ErrMaxDepth, b.maxDepth)
	}
	return nil
}

// column returns the lineage children of the output column name of s.
func (b *builder) column(s *scope.Scope, name string, depth int) ([]*Node, error) {
	if err := b.check(depth); err != nil {
		return nil, err
	}
	if i := indexOf(s.ColumnAliases, name); i >= 0 {
		return b.columnAt(s, i, depth)
	}
	switch {
	case s.IsCompound():
		idx := indexOf(b.columnNames(s.UnionScopes[0]).names, name)
		if idx < 0 {
			return nil, &ResolutionError{Column: name}
		}
		return b.columnAt(s, idx, depth)

	case s.Select != nil:
		outs, opaque := b.outputs(s)
		if o, ok := findOutput(outs, name); ok {
			return b.output(s, o, depth)
		}
		if opaque {
			n, err := b.starFallback(s, name, depth)
			if err != nil {
				return nil, err
			}
			return []*Node{n}, nil
		}
	}
	return nil, &ResolutionError{Column: name}
}

// columnAt returns the lineage children of the output column at position i
// of s. Set-operation branches are merged by position, never by name.
func (b *builder) columnAt(s *scope.Scope, i, depth int) ([]*Node, error) {
	if err := b.check(depth); err != nil {
		return nil, err
	}
	switch {
	case s.IsCompound():
		var out []*Node
		for _, branch := range s.UnionScopes {
			if i >= len(b.columnNames(branch).names) {
				continue
			}
			nodes, err := b.columnAt(branch, i, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil

	case s.Select != nil:
		outs, opaque := b.outputs(s)
		if i < len(outs) {
			return b.output(s, outs[i], depth)
		}
		if names := b.columnNames(s).names; opaque && i < len(names) {
			n, err := b.starFallback(s, names[i], depth)
			if err != nil {
				return nil, err
			}
			return []*Node{n}, nil
		}
	}
	return nil, &ResolutionError{Column: positionName(b.columnNames(s).names, i)}
}

func positionName(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("_col_%d", i)
}

// output is one projected column of a SELECT.
type output struct {
	name  string
	alias bool
	// expr is the projection expression; nil for star-expanded columns.
	expr ast.Expr
	// key and source identify the origin of a star-expanded column.
	key    string
	source scope.SourceInfo
}

// outputs lists the projected columns of s, expanding stars where the
// source's columns are known. opaque reports an unexpanded star.
func (b *builder) outputs(s *scope.Scope) ([]output, bool) {
	switch {
	case s.Function != nil:
		var outs []output
		for _, a := range s.ColumnAliases {
			outs = append(outs, output{name: a})
		}
		if len(outs) == 0 && s.Function.Alias.Value != "" {
			outs = append(outs, output{name: s.Function.Alias.Value})
		}
		return outs, false
	case s.IsCompound():
		nl := b.columnNames(s.UnionScopes[0])
		outs := make([]output, len(nl.names))
		for i, n := range nl.names {
			outs[i] = output{name: n}
		}
		return outs, nl.opaque
	case s.Select == nil:
		return nil, false
	}

	var outs []output
	opaque := false
	expand := func(key string, si scope.SourceInfo) {
		cols, known := b.sourceColumns(si)
		if !known {
			opaque = true
		}
		for _, c := range cols {
			outs = append(outs, output{name: c, key: key, source: si})
		}
	}
	for i, item := range s.Select.Columns {
		switch {
		case item.Star:
			s.Sources.Each(func(key string, si scope.SourceInfo) bool {
				expand(key, si)
				return true
			})
		case len(item.TableStar) > 0:
			qual := ast.JoinIdents(item.TableStar)
			if si, ok := s.Sources.Get(qual); ok {
				expand(qual, si)
			} else {
				opaque = true
			}
		default:
			outs = append(outs, output{
				name:  itemName(item, i),
				alias: item.HasAlias(),
				expr:  item.Expr,
			})
		}
	}
	return outs, opaque
}

// sourceColumns returns the columns a FROM source exposes and whether that
// list is complete.
func (b *builder) sourceColumns(si scope.SourceInfo) ([]string, bool) {
	if si.IsScope {
		if si.Scope == nil {
			return nil, false
		}
		nl := b.columnNames(si.Scope)
		return nl.names, !nl.opaque
	}
	if tn := si.Table(); tn != nil && b.schema.HasTable(tn.Name()) {
		return b.schema.Columns(tn.Name()), true
	}
	return nil, false
}

// columnNames returns the output names of s after column aliases apply.
func (b *builder) columnNames(s *scope.Scope) nameList {
	if nl, ok := b.names[s]; ok {
		return nl
	}
	outs, opaque := b.outputs(s)
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.name
	}
	if n := len(s.ColumnAliases); n > 0 {
		if n >= len(names) {
			names = append([]string(nil), s.ColumnAliases...)
			opaque = false
		} else {
			copy(names, s.ColumnAliases)
		}
	}
	nl := nameList{names: names, opaque: opaque}
	b.names[s] = nl
	return nl
}

// findOutput matches aliases first, then plain names.
func findOutput(outs []output, name string) (output, bool) {
	for _, o := range outs {
		if o.alias && o.name == name {
			return o, true
		}
	}
	for _, o := range outs {
		if o.name == name {
			return o, true
		}
		if c, ok := o.expr.(*ast.CompoundIdent); ok && !o.alias && c.String() == name {
			return o, true
		}
	}
	return output{}, false
}

func (b *builder) output(s *scope.Scope, o output, depth int) ([]*Node, error) {
	if o.expr != nil {
		return b.expr(s, o.expr, true, depth+1)
	}
	if o.source.Expression == nil {
		return nil, nil
	}
	n, err := b.viaSource(s, o.key, s.Resolve(o.key), o.name, depth+1)
	if err != nil {
		return nil, err
	}
	return []*Node{n}, nil
}

// starFallback resolves a column that only an unexpanded star can produce.
func (b *builder) starFallback(s *scope.Scope, name string, depth int) (*Node, error) {
	for _, item := range s.Select.Columns {
		if len(item.TableStar) == 0 {
			continue
		}
		qual := ast.JoinIdents(item.TableStar)
		if si, ok := s.Sources.Get(qual); ok {
			if _, known := b.sourceColumns(si); !known {
				return b.viaSource(s, qual, s.Resolve(qual), name, depth+1)
			}
		}
	}
	return b.ident(s, identRef{column: name}, depth+1)
}

// expr returns the lineage children of expression e evaluated in s. At the
// top of a projection an expression without a lineage rule is an error;
// nested inside another expression it contributes nothing.
func (b *builder) expr(s *scope.Scope, e ast.Expr, top bool, depth int) ([]*Node, error) {
	if err := b.check(depth); err != nil {
		return nil, err
	}
	switch e := e.(type) {
	case nil:
		return nil, nil
	case *ast.Ident:
		return b.one(b.ident(s, identRef{column: e.Value}, depth))
	case *ast.CompoundIdent:
		return b.one(b.ident(s, identRef{qualifier: e.Qualifier(), column: e.Column()}, depth))
	case *ast.BinaryExpr:
		// An operator chain is a flat list of operands, not nesting.
		var out []*Node
		for _, operand := range binaryOperands(e) {
			nodes, err := b.expr(s, operand, false, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case *ast.UnaryExpr:
		return b.expr(s, e.Expr, false, depth+1)
	case *ast.ParenExpr:
		return b.expr(s, e.Expr, top, depth+1)
	case *ast.CastExpr:
		return b.expr(s, e.Expr, top, depth+1)
	case *ast.ExtractExpr:
		return b.expr(s, e.Expr, false, depth+1)
	case *ast.IndexExpr:
		return b.expr(s, e.Expr, false, depth+1)
	case *ast.CaseExpr, *ast.InExpr, *ast.BetweenExpr, *ast.IsExpr, *ast.LikeExpr:
		return b.idents(s, identRefs(e), depth+1)
	case *ast.FuncCall:
		var out []*Node
		for _, arg := range e.Args {
			nodes, err := b.expr(s, arg.Value, false, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return dedupNodes(out), nil
	case *ast.SubqueryExpr:
		child, ok := subqueryScope(s, e.Query)
		if !ok {
			return nil, nil
		}
		names := b.columnNames(child).names
		if len(names) == 0 {
			return nil, nil
		}
		return b.column(child, names[0], depth+1)
	case *ast.Literal, *ast.IntervalExpr:
		return nil, nil
	}
	if top {
		return nil, &UnsupportedConstructError{Construct: constructName(e)}
	}
	return nil, nil
}

func (b *builder) one(n *Node, err error) ([]*Node, error) {
	if err != nil {
		return nil, err
	}
	return []*Node{n}, nil
}

// idents resolves references in first appearance order, deduplicated by
// what they resolve to.
func (b *builder) idents(s *scope.Scope, refs []identRef, depth int) ([]*Node, error) {
	out := make([]*Node, 0, len(refs))
	for _, r := range refs {
		n, err := b.ident(s, r, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return dedupNodes(out), nil
}

// nodeKey identifies a resolved reference: a leaf by (column, table), an
// inner node by its qualified name.
type nodeKey struct {
	column string
	table  string
	inner  string
}

func keyOf(n *Node) nodeKey {
	if n.IsLeaf() {
		return nodeKey{column: n.Column(), table: n.SourceName}
	}
	return nodeKey{inner: n.Name}
}

// dedupNodes drops nodes that resolve to the same reference as an earlier
// one, keeping first appearance order.
func dedupNodes(nodes []*Node) []*Node {
	if len(nodes) < 2 {
		return nodes
	}
	seen := orderedset.New[nodeKey]()
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if seen.Add(keyOf(n)) {
			out = append(out, n)
		}
	}
	return out
}

// binaryOperands flattens the left spine of e into its operands, left to
// right.
func binaryOperands(e *ast.BinaryExpr) []ast.Expr {
	var rights []ast.Expr
	var cur ast.Expr = e
	for {
		be, ok := cur.(*ast.BinaryExpr)
		if !ok || be == nil {
			break
		}
		rights = append(rights, be.Right)
		cur = be.Left
	}
	out := make([]ast.Expr, 0, len(rights)+1)
	out = append(out, cur)
	for i := len(rights) - 1; i >= 0; i-- {
		out = append(out, rights[i])
	}
	return out
}

// ident resolves one column reference in s.
func (b *builder) ident(s *scope.Scope, r identRef, depth int) (*Node, error) {
	if err := b.check(depth); err != nil {
		return nil, err
	}
	if r.qualifier != "" {
		return b.viaSource(s, r.qualifier, s.Resolve(r.qualifier), r.column, depth)
	}

	var keys []string
	s.Sources.Each(func(key string, si scope.SourceInfo) bool {
		if b.exposes(si, r.column) {
			keys = append(keys, key)
		}
		return true
	})
	if len(keys) == 1 {
		return b.viaSource(s, keys[0], s.Resolve(keys[0]), r.column, depth)
	}
	if s.Sources.Len() == 1 {
		key := s.Sources.Keys()[0]
		if res := s.Resolve(key); res.Kind == scope.NestedScope {
			return b.viaSource(s, key, res, r.column, depth)
		}
	}
	return &Node{Name: r.column}, nil
}

// exposes reports whether source si may produce column.
func (b *builder) exposes(si scope.SourceInfo, column string) bool {
	if !si.IsScope {
		tn := si.Table()
		if tn == nil {
			return false
		}
		_, ok := b.schema.Type(tn.Name(), column)
		return ok
	}
	if si.Scope == nil {
		return false
	}
	nl := b.columnNames(si.Scope)
	return nl.opaque || indexOf(nl.names, column) >= 0
}

// viaSource builds the node for qualifier.column once qualifier resolved
// to res in s.
func (b *builder) viaSource(s *scope.Scope, qualifier string, res scope.Resolution, column string, depth int) (*Node, error) {
	switch res.Kind {
	case scope.BaseTable:
		name := res.Table.Name()
		return &Node{Name: name + "." + column, SourceName: name}, nil

	case scope.NestedScope:
		node := &Node{Name: qualifier + "." + column}
		if fn := res.Scope.Function; fn != nil {
			// Table function columns derive from its arguments, which are
			// evaluated in the enclosing scope.
			if fn.Func != nil {
				for _, arg := range fn.Func.Args {
					nodes, err := b.expr(s, arg.Value, false, depth+1)
					if err != nil {
						return nil, err
					}
					node.Downstream = append(node.Downstream, nodes...)
				}
			}
			return node, nil
		}
		children, err := b.column(res.Scope, column, depth+1)
		if err != nil {
			return nil, err
		}
		node.Downstream = children
		return node, nil
	}
	return &Node{Name: qualifier + "." + column, SourceName: qualifier}, nil
}

func subqueryScope(s *scope.Scope, q *ast.Query) (*scope.Scope, bool) {
	if c, ok := s.SubqueryScope(q); ok {
		return c, true
	}
	for _, u := range s.UDTFScopes {
		if c, ok := u.SubqueryScope(q); ok {
			return c, true
		}
	}
	return nil, false
}

// itemName names a projection: its alias, the referenced column, or a
// synthesized _col_N for other expressions.
func itemName(item ast.SelectItem, i int) string {
	if item.HasAlias() {
		return item.Alias.Value
	}
	e := item.Expr
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x.Value
		case *ast.CompoundIdent:
			return x.Column()
		case *ast.ParenExpr:
			e = x.Expr
			continue
		case *ast.CastExpr:
			e = x.Expr
			continue
		}
		return fmt.Sprintf("_col_%d", i)
	}
}

func constructName(e ast.Expr) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", e), "*ast.")
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
