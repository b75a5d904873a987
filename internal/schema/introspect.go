package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"  // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite"
)

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverDuckDB, DriverPostgres, DriverSQLite}
}

// IsDriver reports whether name is a supported driver.
func IsDriver(name string) bool {
	_, err := sqlDriver(name)
	return err == nil
}

func sqlDriver(name string) (string, error) {
	switch strings.ToLower(name) {
	case DriverPostgres, "postgresql", "pgx":
		return "pgx", nil
	case DriverDuckDB:
		return "duckdb", nil
	case DriverSQLite, "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", name)
	}
}

// Open opens and pings a database with the driver matching name.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	name, err := sqlDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}

const informationSchemaQuery = `
	SELECT table_schema, table_name, column_name, data_type
	FROM information_schema.columns
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`

const sqliteQuery = `
	SELECT m.name, p.name, p.type
	FROM sqlite_master AS m
	JOIN pragma_table_info(m.name) AS p
	WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
	ORDER BY m.name, p.cid`

// Introspect reads column types from db. Postgres and DuckDB tables are
// keyed schema.table, optionally restricted to filterSchema; SQLite tables
// are keyed by bare name.
func Introspect(ctx context.Context, db *sql.DB, driver, filterSchema string) (lineage.Schema, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	name, err := sqlDriver(driver)
	if err != nil {
		return nil, err
	}

	if name == "sqlite" {
		return introspectSQLite(ctx, db)
	}

	placeholder := "?"
	if name == "pgx" {
		placeholder = "$1"
	}
	query := informationSchemaQuery
	var args []any
	if filterSchema != "" {
		query += " AND table_schema = " + placeholder
		args = append(args, filterSchema)
	}
	query += " ORDER BY table_schema, table_name, ordinal_position"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	s := make(lineage.Schema)
	for rows.Next() {
		var schemaName, table, column, typ string
		if err := rows.Scan(&schemaName, &table, &column, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		add(s, schemaName+"."+table, column, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return s, nil
}

func introspectSQLite(ctx context.Context, db *sql.DB) (lineage.Schema, error) {
	rows, err := db.QueryContext(ctx, sqliteQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	s := make(lineage.Schema)
	for rows.Next() {
		var table, column, typ string
		if err := rows.Scan(&table, &column, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		add(s, table, column, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return s, nil
}

func add(s lineage.Schema, table, column, typ string) {
	cols, ok := s[table]
	if !ok {
		cols = make(map[string]string)
		s[table] = cols
	}
	cols[column] = typ
}

// Load opens the database, introspects it and closes it again.
func Load(ctx context.Context, driver, dsn, filterSchema string) (lineage.Schema, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return Introspect(ctx, db, driver, filterSchema)
}
