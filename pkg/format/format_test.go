package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/format"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

func generate(t *testing.T, sql, d string) string {
	t.Helper()
	dia := dialect.MustGet(d)
	stmts, err := parser.Parse(sql, dia)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	out, err := format.Generate(stmts[0], dia)
	require.NoError(t, err)
	return out
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		dialect string
		want    string
	}{
		{
			name:    "keywords are upper-cased",
			sql:     "select a, b as c from t where a > 1",
			dialect: "generic",
			want:    "SELECT a, b AS c FROM t WHERE a > 1",
		},
		{
			name:    "whitespace and comments collapse",
			sql:     "SELECT\n  a -- first\n  , b\nFROM /* tbl */ t",
			dialect: "generic",
			want:    "SELECT a, b FROM t",
		},
		{
			name:    "with and joins",
			sql:     "with x as (select id from s) select x.id from x left outer join y on x.id = y.id",
			dialect: "generic",
			want:    "WITH x AS (SELECT id FROM s) SELECT x.id FROM x LEFT JOIN y ON x.id = y.id",
		},
		{
			name:    "set operation with order and limit",
			sql:     "select a from t1 union all select a from t2 order by a desc limit 3",
			dialect: "postgres",
			want:    "SELECT a FROM t1 UNION ALL SELECT a FROM t2 ORDER BY a DESC LIMIT 3",
		},
		{
			name:    "quoted identifiers use dialect delimiters",
			sql:     `SELECT "my col" FROM "my table"`,
			dialect: "postgres",
			want:    `SELECT "my col" FROM "my table"`,
		},
		{
			name:    "backticks",
			sql:     "SELECT `a b` FROM `proj.ds.tbl` AS t",
			dialect: "bigquery",
			want:    "SELECT `a b` FROM `proj.ds.tbl` AS t",
		},
		{
			name:    "tsql top",
			sql:     "select top 5 a from [dbo].[t]",
			dialect: "tsql",
			want:    "SELECT TOP 5 a FROM [dbo].[t]",
		},
		{
			name:    "expressions",
			sql:     "select case when a is not null then cast(a as int) else -1 end, coalesce(b, 'it''s'), c::text, d not in (1, 2), e between 1 and 2 from t",
			dialect: "postgres",
			want:    "SELECT CASE WHEN a IS NOT NULL THEN CAST(a AS int) ELSE -1 END, coalesce(b, 'it''s'), c::text, d NOT IN (1, 2), e BETWEEN 1 AND 2 FROM t",
		},
		{
			name:    "window function",
			sql:     "select sum(x) over (partition by a order by b rows between unbounded preceding and current row) from t",
			dialect: "generic",
			want:    "SELECT sum(x) OVER (PARTITION BY a ORDER BY b ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t",
		},
		{
			name:    "subqueries",
			sql:     "select (select max(v) from u) m from (select v from w) as s where exists (select 1)",
			dialect: "generic",
			want:    "SELECT (SELECT max(v) FROM u) AS m FROM (SELECT v FROM w) AS s WHERE EXISTS (SELECT 1)",
		},
		{
			name:    "oracle table alias without AS",
			sql:     "select a from t x fetch first 5 rows only",
			dialect: "oracle",
			want:    "SELECT a FROM t x FETCH FIRST 5 ROWS ONLY",
		},
		{
			name:    "reserved word identifier is quoted",
			sql:     `SELECT "select" FROM t`,
			dialect: "generic",
			want:    `SELECT "select" FROM t`,
		},
		{
			name:    "raw statement passes through",
			sql:     "insert into t values (1)",
			dialect: "generic",
			want:    "insert into t values (1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generate(t, tt.sql, tt.dialect))
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	queries := []string{
		"SELECT a, b FROM t1 JOIN t2 USING (id) WHERE a LIKE 'x%' GROUP BY a, b HAVING COUNT(*) > 1",
		"WITH c AS (SELECT 1 AS one) SELECT one FROM c UNION SELECT 2",
		"SELECT COUNT(DISTINCT a) FILTER (WHERE b) FROM t QUALIFY ROW_NUMBER() OVER (ORDER BY a) = 1",
	}
	d := dialect.MustGet("duckdb")
	for _, sql := range queries {
		t.Run(sql, func(t *testing.T) {
			first := generate(t, sql, "duckdb")
			stmts, err := parser.Parse(first, d)
			require.NoError(t, err)
			second, err := format.Generate(stmts[0], d)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestGenerate_LimitStyles(t *testing.T) {
	count := &ast.Literal{Type: ast.LiteralNumber, Value: "10"}
	simple := func() *ast.Query {
		return &ast.Query{
			Body: &ast.Select{
				Columns: []ast.SelectItem{{Expr: &ast.Ident{Value: "a"}}},
				From:    &ast.FromClause{Source: &ast.TableName{Parts: []ast.Ident{{Value: "t"}}}},
			},
			Limit: &ast.Limit{Count: count},
		}
	}
	compound := func() *ast.Query {
		q := simple()
		q.Body = &ast.SetOperation{
			Op:    token.UNION,
			Left:  q.Body,
			Right: &ast.Select{Columns: []ast.SelectItem{{Expr: &ast.Ident{Value: "b"}}}},
		}
		return q
	}

	tests := []struct {
		name    string
		query   *ast.Query
		dialect string
		want    string
	}{
		{"limit", simple(), "snowflake", "SELECT a FROM t LIMIT 10"},
		{"top", simple(), "tsql", "SELECT TOP 10 a FROM t"},
		{"teradata top", simple(), "teradata", "SELECT TOP 10 a FROM t"},
		{"fetch", simple(), "oracle", "SELECT a FROM t FETCH FIRST 10 ROWS ONLY"},
		{"compound limit", compound(), "postgres", "SELECT a FROM t UNION SELECT b LIMIT 10"},
		{"compound top wraps", compound(), "tsql", "SELECT TOP 10 * FROM (SELECT a FROM t UNION SELECT b) AS _q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := format.Generate(tt.query, dialect.MustGet(tt.dialect))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := format.Generate(nil, nil)
	require.ErrorIs(t, err, format.ErrNilNode)

	_, err = format.Generate(&ast.Select{Where: &ast.BinaryExpr{Left: nil}}, nil)
	var unsupported *format.UnsupportedNodeError
	require.ErrorAs(t, err, &unsupported)
}
