package commands

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
)

// TablesOutput is the JSON shape of the tables command.
type TablesOutput struct {
	Tables []string `json:"tables"`
}

// QueryOutput is the JSON shape of the rewrite commands.
type QueryOutput struct {
	Query string `json:"query"`
}

// SingleSelectOutput is the JSON shape of the single-select command.
type SingleSelectOutput struct {
	IsSingleSelect bool `json:"is_single_select"`
}

func renderTables(r *output.Renderer, tables []string) error {
	if tables == nil {
		tables = []string{}
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(TablesOutput{Tables: tables})
	}
	if len(tables) == 0 {
		r.Muted("(no tables)")
		return nil
	}
	rows := make([][]string, len(tables))
	for i, t := range tables {
		rows[i] = []string{t}
	}
	r.Table([]string{"Table"}, rows)
	return nil
}

func renderQuery(r *output.Renderer, query string) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(QueryOutput{Query: query})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("```sql")
		r.Println(query)
		r.Println("```")
		return nil
	}
	r.Println(query)
	return nil
}

func renderSingleSelect(r *output.Renderer, single bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(SingleSelectOutput{IsSingleSelect: single})
	}
	if single {
		r.Success("single SELECT statement")
	} else {
		r.Println("not a single SELECT statement")
	}
	return nil
}

func renderLineage(r *output.Renderer, res *analyzer.Lineage) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(2, "Columns")
	if len(res.Columns) == 0 {
		r.Muted("(no columns)")
	} else {
		r.Table([]string{"Column", "Upstream", "Type"}, lineageRows(res.Columns))
	}

	if len(res.NonSelectedColumns) > 0 {
		r.Header(2, "Filter columns")
		r.Table([]string{"Column", "Upstream", "Type"}, lineageRows(res.NonSelectedColumns))
	}

	for _, e := range res.Errors {
		r.Warning(e)
	}
	return nil
}

func lineageRows(cols []analyzer.ColumnLineage) [][]string {
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = []string{c.Name, formatUpstream(c.Upstream), c.Type}
	}
	return rows
}

// formatUpstream joins upstream columns as table.column, or the bare column
// when the table is unknown.
func formatUpstream(ups []analyzer.UpstreamColumn) string {
	parts := make([]string, len(ups))
	for i, u := range ups {
		if u.Table == "" {
			parts[i] = u.Column
			continue
		}
		parts[i] = u.Table + "." + u.Column
	}
	return strings.Join(parts, ", ")
}
