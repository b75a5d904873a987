package dialect

// Generic is the default dialect: ANSI identifiers, LIMIT, and the common
// extensions most warehouses accept.
var Generic = NewDialect("generic").
	AcceptQuote('`', '`').
	DoubleColonCast().
	Qualify().
	Build()

func init() {
	Register(Generic)

	Register(NewDialect("bigquery").
		Identifiers("`", "`", "\\`").
		Qualify().
		Build())
	Register(NewDialect("snowflake").
		DoubleColonCast().
		Qualify().
		Build())
	Register(NewDialect("postgres").
		DoubleColonCast().
		Build(), "postgresql")
	Register(NewDialect("mysql").
		Identifiers("`", "`", "``").
		Build())
	Register(NewDialect("redshift").
		DoubleColonCast().
		Qualify().
		Build())
	Register(NewDialect("athena").
		AcceptQuote('`', '`').
		Build())
	Register(NewDialect("clickhouse").
		Identifiers("`", "`", "``").
		AcceptQuote('"', '"').
		DoubleColonCast().
		Qualify().
		Build())
	Register(NewDialect("databricks").
		Identifiers("`", "`", "``").
		DoubleColonCast().
		Qualify().
		Build())
	Register(NewDialect("tsql").
		Identifiers("[", "]", "]]").
		AcceptQuote('"', '"').
		LimitStyle(LimitTop).
		Build(), "mssql")
	Register(NewDialect("duckdb").
		DoubleColonCast().
		Qualify().
		Build())
	Register(NewDialect("sqlite").
		AcceptQuote('`', '`').
		AcceptQuote('[', ']').
		Build())
	Register(NewDialect("hive").
		Identifiers("`", "`", "``").
		Build())
	Register(NewDialect("spark").
		Identifiers("`", "`", "``").
		Qualify().
		Build())
	Register(NewDialect("trino").
		Build())
	Register(NewDialect("presto").
		Build())
	Register(NewDialect("oracle").
		LimitStyle(LimitFetch).
		NoTableAliasAs().
		Build())
	Register(NewDialect("teradata").
		LimitStyle(LimitTop).
		Qualify().
		Build())
}
