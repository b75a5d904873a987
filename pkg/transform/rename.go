// Package transform rewrites parsed queries in place: renaming table
// references and setting the row limit. Callers pass freshly parsed trees;
// the analysis packages never see a mutated tree.
package transform

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
)

// RenameTables replaces table references named in mapping and returns how
// many references changed.
//
// A key "schema.table" matches a reference whose last two parts equal it;
// a bare key "table" matches any reference ending in that part. Longer keys
// win. A quoted part holding a dotted path, as BigQuery writes
// `project.dataset.table`, is compared segment by segment and replaced by a
// single quoted path. Otherwise the value is split on '.' into the new name
// parts. An unaliased
// reference whose final name changes keeps its old name as alias so
// qualified column references still resolve. References to CTEs are never
// renamed.
func RenameTables(q *ast.Query, mapping map[string]string) int {
	if q == nil || len(mapping) == 0 {
		return 0
	}
	r := &renamer{rules: compileRules(mapping)}
	r.query(q, nil)
	return r.count
}

type rule struct {
	match   []string
	replace []string
}

// compileRules orders rules by key length, longest first, then by key.
func compileRules(mapping map[string]string) []rule {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		if k != "" && mapping[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if ni != nj {
			return ni > nj
		}
		return keys[i] < keys[j]
	})
	rules := make([]rule, len(keys))
	for i, k := range keys {
		rules[i] = rule{
			match:   strings.Split(k, "."),
			replace: strings.Split(mapping[k], "."),
		}
	}
	return rules
}

func (r rule) matches(segments []string) bool {
	if len(r.match) > len(segments) {
		return false
	}
	tail := segments[len(segments)-len(r.match):]
	for i, m := range r.match {
		if tail[i] != m {
			return false
		}
	}
	return true
}

// segments splits the name parts on '.', so a quoted path such as
// `project.dataset.table` compares like project.dataset.table. The second
// result reports whether any single part held a path.
func segments(parts []ast.Ident) ([]string, bool) {
	out := make([]string, 0, len(parts))
	dotted := false
	for _, p := range parts {
		if strings.Contains(p.Value, ".") {
			dotted = true
		}
		out = append(out, strings.Split(p.Value, ".")...)
	}
	return out, dotted
}

type renamer struct {
	rules []rule
	count int
}

func (r *renamer) query(q *ast.Query, ctes map[string]bool) {
	if q == nil {
		return
	}
	local := make(map[string]bool, len(ctes))
	for k := range ctes {
		local[k] = true
	}
	if q.With != nil {
		for _, cte := range q.With.CTEs {
			r.query(cte.Query, local)
			local[cte.Name.Value] = true
		}
	}
	r.setExpr(q.Body, local)
	for _, item := range q.OrderBy {
		r.expr(item.Expr, local)
	}
}

func (r *renamer) setExpr(e ast.SetExpr, ctes map[string]bool) {
	switch e := e.(type) {
	case *ast.Select:
		r.selectBlock(e, ctes)
	case *ast.SetOperation:
		r.setExpr(e.Left, ctes)
		r.setExpr(e.Right, ctes)
	case *ast.Query:
		r.query(e, ctes)
	}
}

func (r *renamer) selectBlock(sel *ast.Select, ctes map[string]bool) {
	if sel.From != nil {
		r.from(sel.From, ctes)
	}
	for _, item := range sel.Columns {
		r.expr(item.Expr, ctes)
	}
	r.expr(sel.Where, ctes)
	for _, g := range sel.GroupBy {
		r.expr(g, ctes)
	}
	r.expr(sel.Having, ctes)
	r.expr(sel.Qualify, ctes)
}

func (r *renamer) from(f *ast.FromClause, ctes map[string]bool) {
	r.tableRef(f.Source, ctes)
	for _, j := range f.Joins {
		r.tableRef(j.Right, ctes)
		r.expr(j.Condition, ctes)
	}
}

func (r *renamer) tableRef(ref ast.TableRef, ctes map[string]bool) {
	switch ref := ref.(type) {
	case *ast.TableName:
		if len(ref.Parts) == 1 && ctes[ref.Parts[0].Value] {
			return
		}
		r.rename(ref)
	case *ast.DerivedTable:
		r.query(ref.Query, ctes)
	case *ast.TableFunction:
		if ref.Func != nil {
			for _, arg := range ref.Func.Args {
				r.expr(arg.Value, ctes)
			}
		}
	case *ast.ParenJoin:
		if ref.From != nil {
			r.from(ref.From, ctes)
		}
	}
}

func (r *renamer) rename(tn *ast.TableName) {
	segs, dotted := segments(tn.Parts)
	for _, rl := range r.rules {
		if !rl.matches(segs) {
			continue
		}
		old := tn.Parts[len(tn.Parts)-1]
		if dotted {
			old = ast.Ident{Value: segs[len(segs)-1]}
			// Keep the quoted path form.
			tn.Parts = []ast.Ident{{Value: strings.Join(rl.replace, "."), Quoted: true}}
		} else {
			parts := make([]ast.Ident, len(rl.replace))
			for i, p := range rl.replace {
				parts[i] = ast.Ident{Value: p}
			}
			tn.Parts = parts
		}
		if tn.Alias.Value == "" && rl.replace[len(rl.replace)-1] != old.Value {
			tn.Alias = old
		}
		r.count++
		return
	}
}

// expr renames tables inside subqueries nested in e.
func (r *renamer) expr(e ast.Expr, ctes map[string]bool) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		if q, ok := n.(*ast.Query); ok {
			r.query(q, ctes)
			return false
		}
		return true
	})
}
