package schema

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    lineage.Schema
		wantErr string
	}{
		{
			name: "yaml",
			data: "orders:\n  id: BIGINT\n  total: NUMERIC\ncustomers:\n  id: INT\n",
			want: lineage.Schema{
				"orders":    {"id": "BIGINT", "total": "NUMERIC"},
				"customers": {"id": "INT"},
			},
		},
		{
			name: "json",
			data: `{"db.t": {"a": "TEXT", "b": null}}`,
			want: lineage.Schema{"db.t": {"a": "TEXT", "b": ""}},
		},
		{
			name: "empty document",
			data: "",
			want: lineage.Schema{},
		},
		{
			name:    "wrong shape",
			data:    "- a\n- b\n",
			wantErr: "cannot unmarshal",
		},
		{
			name:    "empty table",
			data:    `{"": {"a": "INT"}}`,
			wantErr: "empty table name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("t:\n  a: INT\n"), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lineage.Schema{"t": {"a": "INT"}}, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}

func TestMerge(t *testing.T) {
	dst := lineage.Schema{"a": {"x": "INT"}, "b": {"y": "INT"}}
	got := Merge(dst, lineage.Schema{"b": {"z": "TEXT"}})
	assert.Equal(t, lineage.Schema{"a": {"x": "INT"}, "b": {"z": "TEXT"}}, got)

	assert.Equal(t, lineage.Schema{"c": {"q": "INT"}}, Merge(nil, lineage.Schema{"c": {"q": "INT"}}))
}

func TestSQLDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "postgres", want: "pgx"},
		{in: "PostgreSQL", want: "pgx"},
		{in: "duckdb", want: "duckdb"},
		{in: "sqlite3", want: "sqlite"},
		{in: "oracle", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sqlDriver(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, IsDriver(tt.in))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsDriver(tt.in))
		})
	}
}

func TestIntrospect_InformationSchema(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		filter      string
		wantPattern string
		wantArgs    bool
	}{
		{
			name:        "postgres unfiltered",
			driver:      DriverPostgres,
			wantPattern: `FROM information_schema\.columns\s+WHERE table_schema NOT IN \('pg_catalog', 'information_schema'\) ORDER BY`,
		},
		{
			name:        "postgres filtered",
			driver:      DriverPostgres,
			filter:      "public",
			wantPattern: regexp.QuoteMeta("AND table_schema = $1"),
			wantArgs:    true,
		},
		{
			name:        "duckdb filtered",
			driver:      DriverDuckDB,
			filter:      "main",
			wantPattern: regexp.QuoteMeta("AND table_schema = ?"),
			wantArgs:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			rows := sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"}).
				AddRow("public", "orders", "id", "bigint").
				AddRow("public", "orders", "total", "numeric").
				AddRow("public", "customers", "id", "integer")
			exp := mock.ExpectQuery(tt.wantPattern)
			if tt.wantArgs {
				exp = exp.WithArgs(tt.filter)
			}
			exp.WillReturnRows(rows)

			got, err := Introspect(context.Background(), db, tt.driver, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, lineage.Schema{
				"public.orders":    {"id": "bigint", "total": "numeric"},
				"public.customers": {"id": "integer"},
			}, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIntrospect_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Introspect(ctx, nil, DriverPostgres, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = Introspect(ctx, db, "oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")

	mock.ExpectQuery("information_schema").WillReturnError(assert.AnError)
	_, err = Introspect(ctx, db, DriverPostgres, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	mock.ExpectQuery("information_schema").WillReturnRows(
		sqlmock.NewRows([]string{"a", "b", "c", "d"}).
			AddRow("s", "t", "c", "int").
			RowError(0, assert.AnError))
	_, err = Introspect(ctx, db, DriverDuckDB, "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospect_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL, note TEXT);
		CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100;`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	got, err := Load(ctx, DriverSQLite, path, "")
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", got["orders"]["id"])
	assert.Equal(t, "REAL", got["orders"]["total"])
	assert.Equal(t, "TEXT", got["orders"]["note"])
	assert.Contains(t, got, "big_orders")
	assert.Len(t, got["big_orders"], 2)
}
