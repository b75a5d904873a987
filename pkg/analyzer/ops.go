package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/sqllineage/internal/orderedset"
	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/format"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/leapstack-labs/sqllineage/pkg/scope"
	"github.com/leapstack-labs/sqllineage/pkg/transform"
)

// Operation names, used for logging and cache keys.
const (
	OpTables       = "tables"
	OpSingleSelect = "single_select"
	OpRename       = "rename"
	OpLimit        = "limit"
	OpLineage      = "lineage"
)

// Lineage is the column lineage of a query.
type Lineage struct {
	Columns            []ColumnLineage `json:"columns"`
	NonSelectedColumns []ColumnLineage `json:"non_selected_columns"`
	Errors             []string        `json:"errors"`
}

// ColumnLineage lists the upstream columns of one column.
type ColumnLineage struct {
	Name     string           `json:"name"`
	Upstream []UpstreamColumn `json:"upstream"`
	Type     string           `json:"type,omitempty"`
}

// UpstreamColumn is a base-table column. Table is empty when unresolved.
type UpstreamColumn struct {
	Column string `json:"column"`
	Table  string `json:"table"`
}

// GetTables returns the base tables referenced by every statement in sql,
// deduplicated in first-seen order.
func (a *Analyzer) GetTables(ctx context.Context, sql, dialectName string) (tables []string, err error) {
	defer a.track(OpTables, dialectName, sql, time.Now(), &err)

	key := a.newKey(OpTables, dialectName, sql)
	if a.cached(ctx, key, &tables) {
		return tables, nil
	}

	_, stmts, err := a.parse(sql, dialectName)
	if err != nil {
		return nil, err
	}
	seen := orderedset.New[string]()
	for _, stmt := range stmts {
		q, ok := stmt.(*ast.Query)
		if !ok {
			continue
		}
		ts, err := scope.GetTables(q, scope.WithMaxDepth(a.maxDepth))
		if err != nil {
			return nil, err
		}
		for _, t := range ts {
			seen.Add(t)
		}
	}
	tables = seen.Keys()
	a.store(ctx, key, tables)
	return tables, nil
}

// IsSingleSelect reports whether sql is exactly one statement whose
// regenerated text starts with SELECT or WITH.
func (a *Analyzer) IsSingleSelect(ctx context.Context, sql, dialectName string) (single bool, err error) {
	defer a.track(OpSingleSelect, dialectName, sql, time.Now(), &err)

	if isBlank(sql) {
		return false, ErrEmptyQuery
	}
	key := a.newKey(OpSingleSelect, dialectName, sql)
	if a.cached(ctx, key, &single) {
		return single, nil
	}

	d, stmts, err := a.parse(sql, dialectName)
	if err != nil {
		return false, err
	}
	if len(stmts) == 1 {
		text, err := format.Generate(stmts[0], d)
		if err != nil {
			return false, err
		}
		upper := strings.ToUpper(strings.TrimSpace(text))
		single = strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
	}
	a.store(ctx, key, single)
	return single, nil
}

// RenameTables rewrites the first statement of sql with the table names in
// mapping replaced. See transform.RenameTables for the matching rules.
func (a *Analyzer) RenameTables(ctx context.Context, sql, dialectName string, mapping map[string]string) (out string, err error) {
	defer a.track(OpRename, dialectName, sql, time.Now(), &err)

	key := a.newKey(OpRename, dialectName, sql, mapping)
	if a.cached(ctx, key, &out) {
		return out, nil
	}

	d, q, err := a.firstQuery(sql, dialectName)
	if err != nil {
		return "", err
	}
	transform.RenameTables(q, mapping)
	out, err = format.Generate(q, d)
	if err != nil {
		return "", err
	}
	a.store(ctx, key, out)
	return out, nil
}

// AddLimit rewrites the first statement of sql capped at limit rows.
func (a *Analyzer) AddLimit(ctx context.Context, sql, dialectName string, limit int64) (out string, err error) {
	defer a.track(OpLimit, dialectName, sql, time.Now(), &err)

	if limit < 0 {
		return "", fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	key := a.newKey(OpLimit, dialectName, sql, limit)
	if a.cached(ctx, key, &out) {
		return out, nil
	}

	d, q, err := a.firstQuery(sql, dialectName)
	if err != nil {
		return "", err
	}
	transform.SetLimit(q, limit)
	out, err = format.Generate(q, d)
	if err != nil {
		return "", err
	}
	a.store(ctx, key, out)
	return out, nil
}

// ColumnLineage computes the lineage of every output column of the first
// statement of sql. Failures on individual columns are reported in
// Lineage.Errors; the remaining columns are still returned.
func (a *Analyzer) ColumnLineage(ctx context.Context, sql, dialectName string, schema lineage.Schema) (res *Lineage, err error) {
	defer a.track(OpLineage, dialectName, sql, time.Now(), &err)

	if a.maxQueryLength > 0 && len(sql) > a.maxQueryLength {
		a.logger.Warn("skipping column lineage", "query_length", len(sql), "max_query_length", a.maxQueryLength)
		return nil, ErrQueryTooLong
	}
	key := a.newKey(OpLineage, dialectName, sql, schema)
	res = &Lineage{}
	if a.cached(ctx, key, res) {
		return res, nil
	}

	_, q, err := a.firstQuery(sql, dialectName)
	if err != nil {
		return nil, err
	}
	root, err := scope.Build(q, scope.WithMaxDepth(a.maxDepth))
	if err != nil {
		return nil, err
	}
	opts := []lineage.Option{lineage.WithSchema(schema), lineage.WithMaxDepth(a.maxDepth)}

	result := lineage.Analyze(root, opts...)
	res = &Lineage{
		Columns:            make([]ColumnLineage, 0, len(result.Columns)),
		NonSelectedColumns: nonSelected(lineage.NonSelected(root, opts...)),
		Errors:             make([]string, 0, len(result.Errors)),
	}
	for _, c := range result.Columns {
		res.Columns = append(res.Columns, ColumnLineage{
			Name:     c.Name,
			Upstream: upstream(c.References),
			Type:     columnType(schema, c.References),
		})
	}
	sort.SliceStable(res.Columns, func(i, j int) bool {
		return res.Columns[i].Name < res.Columns[j].Name
	})
	for _, e := range result.Errors {
		a.logger.Warn("column lineage failed", "error", e)
		res.Errors = append(res.Errors, e.Error())
	}

	a.store(ctx, key, res)
	return res, nil
}

func upstream(refs []lineage.ColumnRef) []UpstreamColumn {
	out := make([]UpstreamColumn, len(refs))
	for i, r := range refs {
		out[i] = UpstreamColumn{Column: r.Column, Table: r.Table}
	}
	return out
}

// columnType returns the schema type of a column with exactly one resolved
// upstream.
func columnType(schema lineage.Schema, refs []lineage.ColumnRef) string {
	if len(refs) != 1 || refs[0].Table == "" {
		return ""
	}
	t, _ := schema.Type(refs[0].Table, refs[0].Column)
	return t
}

// nonSelected groups filter columns by name; each lists itself upstream.
func nonSelected(refs []lineage.ColumnRef) []ColumnLineage {
	out := make([]ColumnLineage, 0, len(refs))
	index := make(map[string]int, len(refs))
	for _, r := range refs {
		up := UpstreamColumn{Column: r.Column, Table: r.Table}
		if i, ok := index[r.Column]; ok {
			out[i].Upstream = append(out[i].Upstream, up)
			continue
		}
		index[r.Column] = len(out)
		out = append(out, ColumnLineage{Name: r.Column, Upstream: []UpstreamColumn{up}})
	}
	return out
}
