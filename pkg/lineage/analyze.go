package lineage

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/sqllineage/internal/orderedset"
	"github.com/leapstack-labs/sqllineage/pkg/scope"
)

// ColumnRef is an upstream column. Table is empty when the column could
// not be tied to a base table.
type ColumnRef struct {
	Column string
	Table  string
}

// Column is the flattened lineage of one output column.
type Column struct {
	Name       string
	References []ColumnRef
}

// Result holds the lineage of every output column of a query. A column
// whose lineage failed appears in Errors as a *ColumnError instead.
type Result struct {
	Columns []Column
	Errors  []error
}

// ColumnNames lists the output column names of the query scoped by root,
// in projection order. Stars expand where the columns are known.
func ColumnNames(root *scope.Scope, opts ...Option) []string {
	return newBuilder(opts).columnNames(root).names
}

// Analyze computes the lineage of every output column of root, one entry
// per projection position, so repeated names each get their own entry. A
// failure on one column is recorded and the remaining columns still run.
func Analyze(root *scope.Scope, opts ...Option) *Result {
	b := newBuilder(opts)
	res := &Result{}
	for i, name := range b.columnNames(root).names {
		children, err := b.columnAt(root, i, 0)
		if err != nil {
			res.Errors = append(res.Errors, &ColumnError{Column: name, Err: err})
			continue
		}
		node := &Node{Name: name, Downstream: children}
		res.Columns = append(res.Columns, Column{Name: name, References: References(node)})
	}
	return res
}

// References flattens n to its leaves, ordered case-insensitively by
// column name and deduplicated by (column, table).
func References(n *Node) []ColumnRef {
	leaves := n.Leaves()
	type keyed struct {
		key string
		ref ColumnRef
	}
	fold := cases.Fold()
	refs := make([]keyed, len(leaves))
	for i, l := range leaves {
		refs[i] = keyed{
			key: fold.String(l.Column()),
			ref: ColumnRef{Column: l.Column(), Table: l.SourceName},
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].key < refs[j].key
	})

	seen := orderedset.New[ColumnRef]()
	for _, r := range refs {
		seen.Add(r.ref)
	}
	return seen.Keys()
}

// NonSelected returns the columns referenced by the WHERE clause of the
// root SELECT, resolved like projection columns and deduplicated by
// (column, table).
func NonSelected(root *scope.Scope, opts ...Option) []ColumnRef {
	if root == nil || root.Select == nil || root.Select.Where == nil {
		return nil
	}
	b := newBuilder(opts)
	seen := orderedset.New[ColumnRef]()
	nodes, err := b.idents(root, identRefs(root.Select.Where), 1)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		for _, l := range n.Leaves() {
			seen.Add(ColumnRef{Column: l.Column(), Table: l.SourceName})
		}
	}
	return seen.Keys()
}
