package lineage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/scope"
)

func buildScope(t *testing.T, sql, d string) *scope.Scope {
	t.Helper()
	q, err := parser.ParseQuery(sql, dialect.MustGet(d))
	require.NoError(t, err)
	s, err := scope.Build(q)
	require.NoError(t, err)
	return s
}

func refs(pairs ...string) []lineage.ColumnRef {
	out := make([]lineage.ColumnRef, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, lineage.ColumnRef{Column: pairs[i], Table: pairs[i+1]})
	}
	return out
}

func columnsByName(res *lineage.Result) map[string][]lineage.ColumnRef {
	out := make(map[string][]lineage.ColumnRef, len(res.Columns))
	for _, c := range res.Columns {
		out[c.Name] = c.References
	}
	return out
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		dialect string
		schema  lineage.Schema
		want    map[string][]lineage.ColumnRef
	}{
		{
			name: "unqualified columns without schema",
			sql:  "SELECT a, b, c, d FROM dataset.table1",
			want: map[string][]lineage.ColumnRef{
				"a": refs("a", ""),
				"b": refs("b", ""),
				"c": refs("c", ""),
				"d": refs("d", ""),
			},
		},
		{
			name:   "unqualified columns with schema",
			sql:    "SELECT a FROM dataset.table1",
			schema: lineage.Schema{"dataset.table1": {"a": "INT"}},
			want:   map[string][]lineage.ColumnRef{"a": refs("a", "dataset.table1")},
		},
		{
			name: "qualified by table and alias",
			sql:  "SELECT t.a, x.b AS bb FROM t JOIN db.u x ON t.id = x.id",
			want: map[string][]lineage.ColumnRef{
				"a":  refs("a", "t"),
				"bb": refs("b", "db.u"),
			},
		},
		{
			name: "through cte",
			sql:  "WITH c AS (SELECT s.a, s.b + 1 AS b2 FROM src s) SELECT a, b2 FROM c",
			want: map[string][]lineage.ColumnRef{
				"a":  refs("a", "src"),
				"b2": refs("b", "src"),
			},
		},
		{
			name: "transitive through derived tables",
			sql:  "SELECT z.v FROM (SELECT y.w AS v FROM (SELECT base.col AS w FROM base) y) z",
			want: map[string][]lineage.ColumnRef{"v": refs("col", "base")},
		},
		{
			name: "union by ordinal position",
			sql:  "SELECT t1.a AS x FROM t1 UNION ALL SELECT t2.b FROM t2",
			want: map[string][]lineage.ColumnRef{"x": refs("a", "t1", "b", "t2")},
		},
		{
			name: "union inside cte",
			sql:  "WITH c AS (SELECT x.a FROM x UNION SELECT y.a FROM y) SELECT c.a FROM c",
			want: map[string][]lineage.ColumnRef{"a": refs("a", "x", "a", "y")},
		},
		{
			name:    "function arguments keep table qualification",
			sql:     "SELECT COALESCE(`table1`.`a`, `table2`.`a`) AS a FROM `table1` JOIN `table2` ON `table1`.id = `table2`.id",
			dialect: "bigquery",
			want:    map[string][]lineage.ColumnRef{"a": refs("a", "table1", "a", "table2")},
		},
		{
			name: "literal projection is its own leaf",
			sql:  "SELECT 1 AS one, 'x' AS s",
			want: map[string][]lineage.ColumnRef{
				"one": refs("one", ""),
				"s":   refs("s", ""),
			},
		},
		{
			name: "scalar subquery",
			sql:  "SELECT (SELECT max(u.v) FROM u) AS mv FROM t",
			want: map[string][]lineage.ColumnRef{"mv": refs("v", "u")},
		},
		{
			name: "star through cte",
			sql:  "WITH c AS (SELECT s.a, s.b FROM src s) SELECT * FROM c",
			want: map[string][]lineage.ColumnRef{
				"a": refs("a", "src"),
				"b": refs("b", "src"),
			},
		},
		{
			name:   "star expanded from schema",
			sql:    "SELECT * FROM t",
			schema: lineage.Schema{"t": {"x": "INT", "y": "TEXT"}},
			want: map[string][]lineage.ColumnRef{
				"x": refs("x", "t"),
				"y": refs("y", "t"),
			},
		},
		{
			name: "unexpanded table star",
			sql:  "SELECT q.a FROM (SELECT t.* FROM t) q",
			want: map[string][]lineage.ColumnRef{"a": refs("a", "t")},
		},
		{
			name: "cte column aliases",
			sql:  "WITH c(x) AS (SELECT s.a FROM src s) SELECT x FROM c",
			want: map[string][]lineage.ColumnRef{"x": refs("a", "src")},
		},
		{
			name: "table function arguments",
			sql:  "SELECT g.n FROM t, unnest(t.arr) AS g(n)",
			want: map[string][]lineage.ColumnRef{"n": refs("arr", "t")},
		},
		{
			name: "aggregates",
			sql:  "SELECT upper(t.name) AS un, count(*) AS cnt FROM t",
			want: map[string][]lineage.ColumnRef{
				"un":  refs("name", "t"),
				"cnt": refs("cnt", ""),
			},
		},
		{
			name: "case-insensitive ordering",
			sql:  "SELECT concat(t.b, t.A, t.c) AS x FROM t",
			want: map[string][]lineage.ColumnRef{"x": refs("A", "t", "b", "t", "c", "t")},
		},
		{
			name: "duplicate references collapse",
			sql:  "SELECT t.a + t.a AS x FROM t",
			want: map[string][]lineage.ColumnRef{"x": refs("a", "t")},
		},
		{
			name: "unqualified column found in one nested source",
			sql:  "SELECT b FROM t JOIN (SELECT u.b FROM u) d ON 1 = 1",
			want: map[string][]lineage.ColumnRef{"b": refs("b", "u")},
		},
		{
			name: "cte column aliases map by position",
			sql:  "WITH c(x, y) AS (SELECT t1.id, t2.id FROM t1 JOIN t2 ON 1 = 1) SELECT x, y FROM c",
			want: map[string][]lineage.ColumnRef{
				"x": refs("id", "t1"),
				"y": refs("id", "t2"),
			},
		},
		{
			name: "derived table column aliases map by position",
			sql:  "SELECT d.y FROM (SELECT t1.id, t2.id FROM t1 JOIN t2 ON 1 = 1) AS d(x, y)",
			want: map[string][]lineage.ColumnRef{"y": refs("id", "t2")},
		},
		{
			name: "union with repeated names in later branch",
			sql:  "SELECT t1.a AS x, t1.b AS y FROM t1 UNION ALL SELECT t2.c, t2.c FROM t2",
			want: map[string][]lineage.ColumnRef{
				"x": refs("a", "t1", "c", "t2"),
				"y": refs("b", "t1", "c", "t2"),
			},
		},
		{
			name: "window function arguments",
			sql:  "SELECT sum(t.amount) OVER (PARTITION BY t.region ORDER BY t.day) AS running FROM t",
			want: map[string][]lineage.ColumnRef{"running": refs("amount", "t")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.dialect
			if d == "" {
				d = "generic"
			}
			root := buildScope(t, tt.sql, d)
			res := lineage.Analyze(root, lineage.WithSchema(tt.schema))
			require.Empty(t, res.Errors)
			assert.Equal(t, tt.want, columnsByName(res))
		})
	}
}

func TestLineage_CaseChildren(t *testing.T) {
	root := buildScope(t,
		"SELECT CASE WHEN price > 10 THEN t2.somecol WHEN price > 5 THEN t2.somecol ELSE price END AS c "+
			"FROM t1 JOIN t2 ON t1.id = t2.id", "generic")

	node, err := lineage.Lineage("c", root)
	require.NoError(t, err)
	require.Len(t, node.Downstream, 2)
	assert.Equal(t, "price", node.Downstream[0].Name)
	assert.Equal(t, "", node.Downstream[0].SourceName)
	assert.Equal(t, "t2.somecol", node.Downstream[1].Name)
	assert.Equal(t, "t2", node.Downstream[1].SourceName)
}

func TestLineage_DedupResolvedChildren(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		schema lineage.Schema
		column string
		want   []string
	}{
		{
			name:   "repeated function argument",
			sql:    "SELECT COALESCE(t.a, t.a) AS x FROM t",
			column: "x",
			want:   []string{"t.a"},
		},
		{
			name:   "case branches spelled differently",
			sql:    "SELECT CASE WHEN a > 0 THEN t.a ELSE t.b END AS x FROM t",
			schema: lineage.Schema{"t": {"a": "INT", "b": "INT"}},
			column: "x",
			want:   []string{"t.a", "t.b"},
		},
		{
			name:   "function arguments through a cte",
			sql:    "WITH c AS (SELECT s.a FROM src s) SELECT concat(c.a, a) AS x FROM c",
			column: "x",
			want:   []string{"c.a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := lineage.Lineage(tt.column, buildScope(t, tt.sql, "generic"), lineage.WithSchema(tt.schema))
			require.NoError(t, err)
			names := make([]string, len(node.Downstream))
			for i, d := range node.Downstream {
				names[i] = d.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestLineage_NestedTree(t *testing.T) {
	root := buildScope(t, "WITH c AS (SELECT s.a FROM src s) SELECT c.a AS out FROM c", "generic")

	node, err := lineage.Lineage("out", root)
	require.NoError(t, err)
	assert.Equal(t, "out", node.Name)
	require.Len(t, node.Downstream, 1)

	mid := node.Downstream[0]
	assert.Equal(t, "c.a", mid.Name)
	assert.False(t, mid.IsLeaf())
	require.Len(t, mid.Downstream, 1)

	leaf := mid.Downstream[0]
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "src.a", leaf.Name)
	assert.Equal(t, "src", leaf.SourceName)
	assert.Equal(t, []*lineage.Node{leaf}, node.Leaves())
}

func TestLineage_MissingColumn(t *testing.T) {
	root := buildScope(t, "SELECT t.a FROM t", "generic")

	_, err := lineage.Lineage("nope", root)
	require.Error(t, err)
	var resErr *lineage.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "nope", resErr.Column)
	assert.Equal(t, `resolution error: column "nope" not found in projection`, err.Error())
}

func TestAnalyze_PerColumnErrors(t *testing.T) {
	root := buildScope(t, "SELECT t.a, EXISTS (SELECT 1 FROM u) AS e, t.b FROM t", "generic")

	res := lineage.Analyze(root)
	assert.Equal(t, map[string][]lineage.ColumnRef{
		"a": refs("a", "t"),
		"b": refs("b", "t"),
	}, columnsByName(res))

	require.Len(t, res.Errors, 1)
	var colErr *lineage.ColumnError
	require.True(t, errors.As(res.Errors[0], &colErr))
	assert.Equal(t, "e", colErr.Column)

	var unsupported *lineage.UnsupportedConstructError
	require.True(t, errors.As(res.Errors[0], &unsupported))
	assert.Equal(t, "ExistsExpr", unsupported.Construct)
	assert.True(t, strings.HasPrefix(res.Errors[0].Error(), "lineage error for column e: "))
}

func TestAnalyze_RepeatedOutputNames(t *testing.T) {
	root := buildScope(t, "SELECT t1.a, t1.a FROM t1 UNION ALL SELECT t2.b, t2.c FROM t2", "generic")

	res := lineage.Analyze(root)
	require.Empty(t, res.Errors)
	assert.Equal(t, []lineage.Column{
		{Name: "a", References: refs("a", "t1", "b", "t2")},
		{Name: "a", References: refs("a", "t1", "c", "t2")},
	}, res.Columns)
}

func TestAnalyze_LongOperatorChain(t *testing.T) {
	terms := make([]string, 200)
	for i := range terms {
		terms[i] = "t.a"
	}
	root := buildScope(t, "SELECT "+strings.Join(terms, " + ")+" AS s FROM t", "generic")

	res := lineage.Analyze(root)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string][]lineage.ColumnRef{"s": refs("a", "t")}, columnsByName(res))
}

func TestAnalyze_Idempotent(t *testing.T) {
	sql := "WITH c AS (SELECT s.a, s.b FROM src s) SELECT c.a, upper(c.b) AS ub, 1 AS k FROM c " +
		"UNION ALL SELECT o.x, o.y, o.z FROM other o"
	first := lineage.Analyze(buildScope(t, sql, "generic"))
	second := lineage.Analyze(buildScope(t, sql, "generic"))
	assert.Equal(t, first, second)
}

func TestAnalyze_MaxDepth(t *testing.T) {
	sql := "SELECT base.c FROM base"
	for i := 0; i < 8; i++ {
		sql = "SELECT s.c FROM (" + sql + ") s"
	}
	root := buildScope(t, sql, "generic")

	res := lineage.Analyze(root, lineage.WithMaxDepth(4))
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], lineage.ErrMaxDepth))

	res = lineage.Analyze(root)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string][]lineage.ColumnRef{"c": refs("c", "base")}, columnsByName(res))
}

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"aliases and names", "SELECT a, t.b, c AS cc FROM t", []string{"a", "b", "cc"}},
		{"synthesized", "SELECT t.a + 1, CAST(t.b AS INT) FROM t", []string{"_col_0", "b"}},
		{"union takes first branch", "SELECT a AS x FROM t UNION SELECT b FROM u", []string{"x"}},
		{"star through cte", "WITH c AS (SELECT a, b FROM t) SELECT * FROM c", []string{"a", "b"}},
		{"unexpandable star", "SELECT * FROM t", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lineage.ColumnNames(buildScope(t, tt.sql, "generic"))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNonSelected(t *testing.T) {
	root := buildScope(t,
		"SELECT t.a FROM t JOIN u ON t.id = u.id WHERE u.status = 'x' AND t.a > 1 AND u.status IS NOT NULL",
		"generic")

	assert.Equal(t, refs("status", "u", "a", "t"), lineage.NonSelected(root))

	noWhere := buildScope(t, "SELECT t.a FROM t", "generic")
	assert.Empty(t, lineage.NonSelected(noWhere))
}

func TestFindIdents(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple case with repeats",
			sql:  "SELECT CASE price WHEN 1 THEN t2.somecol ELSE price END FROM t",
			want: []string{"price", "t2.somecol", "price"},
		},
		{
			name: "searched case",
			sql:  "SELECT CASE WHEN a > 1 THEN b END FROM t",
			want: []string{"a", "b"},
		},
		{
			name: "operators and parentheses",
			sql:  "SELECT a + b.c * -(d) FROM t",
			want: []string{"a", "b.c", "d"},
		},
		{
			name: "function arguments",
			sql:  "SELECT coalesce(a, db.t.b, 0) FROM t",
			want: []string{"a", "db.t.b"},
		},
		{
			name: "subqueries contribute nothing",
			sql:  "SELECT a IN (SELECT b FROM u) FROM t",
			want: []string{"a"},
		},
		{
			name: "literal",
			sql:  "SELECT 42 FROM t",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parser.ParseQuery(tt.sql, dialect.Generic)
			require.NoError(t, err)
			expr := q.Body.(*ast.Select).Columns[0].Expr
			got := lineage.FindIdents(expr)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferences_LeafRoot(t *testing.T) {
	n := &lineage.Node{Name: "k"}
	assert.True(t, n.IsLeaf())
	assert.Equal(t, refs("k", ""), lineage.References(n))
	assert.Equal(t, "col", (&lineage.Node{Name: "db.t.col"}).Column())
}

func TestSchema(t *testing.T) {
	s := lineage.Schema{
		"Sales.Orders": {"id": "INT", "Total": "NUMERIC"},
		"items":        {"sku": "TEXT"},
	}
	assert.Equal(t, []string{"Total", "id"}, s.Columns("sales.orders"))
	assert.Equal(t, []string{"Total", "id"}, s.Columns("orders"))
	assert.True(t, s.HasTable("public.items"))
	assert.False(t, s.HasTable("missing"))

	typ, ok := s.Type("items", "SKU")
	assert.True(t, ok)
	assert.Equal(t, "TEXT", typ)

	var empty lineage.Schema
	assert.Nil(t, empty.Columns("t"))
}
