package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [file|-]",
		Short: "List the tables a query reads",
		Long: `Parse the query and print every base table it references.

CTE names are not reported; the tables inside their bodies are. Input is
read from the named file, or from stdin when the file is omitted or "-".`,
		Example: `  # Tables of a file
  sqllineage tables query.sql

  # From stdin, BigQuery syntax, as JSON
  echo 'SELECT * FROM ds.t' | sqllineage tables -d bigquery -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			tables, err := cmdCtx.Analyzer.GetTables(cmd.Context(), sql, dialectFor(cmdCtx.Cfg))
			if err != nil {
				return err
			}
			return renderTables(cmdCtx.Renderer, tables)
		},
	}
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lineage [file|-]",
		Short: "Show column-level lineage for a query",
		Long: `Trace every output column of the query back to the base-table columns
it is computed from. Columns read only in the WHERE clause are listed as
filter columns.

A schema (--schema-file or the database section of the config) lets
unqualified columns be attributed to the right table and fills in types.`,
		Example: `  # Lineage of a query file
  sqllineage lineage model.sql

  # With a schema, as JSON
  sqllineage lineage model.sql --schema-file schema.yaml -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			res, err := cmdCtx.Analyzer.ColumnLineage(cmd.Context(), sql, dialectFor(cmdCtx.Cfg), cmdCtx.Schema)
			if err != nil {
				return err
			}
			return renderLineage(cmdCtx.Renderer, res)
		},
	}
}

// NewSingleSelectCommand creates the single-select command.
func NewSingleSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "single-select [file|-]",
		Short: "Check whether the input is exactly one SELECT statement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			single, err := cmdCtx.Analyzer.IsSingleSelect(cmd.Context(), sql, dialectFor(cmdCtx.Cfg))
			if err != nil {
				return err
			}
			return renderSingleSelect(cmdCtx.Renderer, single)
		},
	}
}

// RenameOptions holds options for the rename command.
type RenameOptions struct {
	Mappings []string
}

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	opts := &RenameOptions{}

	cmd := &cobra.Command{
		Use:   "rename [file|-] --map old=new ...",
		Short: "Rewrite table names in a query",
		Long: `Replace table references according to --map and print the rewritten query.

A key with a schema (schema.table) matches only references with that schema;
a bare key matches the table in any schema. CTE references are left alone.`,
		Example: `  sqllineage rename query.sql --map raw.orders=staging.orders --map users=dim_users`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := parseMappings(opts.Mappings)
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			out, err := cmdCtx.Analyzer.RenameTables(cmd.Context(), sql, dialectFor(cmdCtx.Cfg), mapping)
			if err != nil {
				return err
			}
			return renderQuery(cmdCtx.Renderer, out)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Mappings, "map", "m", nil, "Table mapping old=new (repeatable)")
	_ = cmd.MarkFlagRequired("map")

	return cmd
}

// parseMappings turns old=new pairs into a mapping.
func parseMappings(pairs []string) (map[string]string, error) {
	mapping := make(map[string]string, len(pairs))
	for _, p := range pairs {
		old, repl, ok := strings.Cut(p, "=")
		old, repl = strings.TrimSpace(old), strings.TrimSpace(repl)
		if !ok || old == "" || repl == "" {
			return nil, fmt.Errorf("invalid mapping %q (expected old=new)", p)
		}
		mapping[old] = repl
	}
	return mapping, nil
}

// LimitOptions holds options for the limit command.
type LimitOptions struct {
	Rows int64
}

// NewLimitCommand creates the limit command.
func NewLimitCommand() *cobra.Command {
	opts := &LimitOptions{}

	cmd := &cobra.Command{
		Use:   "limit [file|-] --rows N",
		Short: "Cap the number of rows a query returns",
		Long: `Set or replace the outermost row limit of the query and print it in the
dialect's syntax (LIMIT, TOP or FETCH FIRST).`,
		Example: `  sqllineage limit query.sql --rows 100 -d tsql`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			out, err := cmdCtx.Analyzer.AddLimit(cmd.Context(), sql, dialectFor(cmdCtx.Cfg), opts.Rows)
			if err != nil {
				return err
			}
			return renderQuery(cmdCtx.Renderer, out)
		},
	}

	cmd.Flags().Int64VarP(&opts.Rows, "rows", "n", 0, "Row limit")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}
