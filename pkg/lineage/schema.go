package lineage

import (
	"sort"
	"strings"
)

// Schema is advisory table metadata: table name to column name to type.
// Table keys may be bare or qualified. Lineage never depends on it for
// correctness; it only helps resolve unqualified columns and expand stars.
type Schema map[string]map[string]string

// lookup finds the columns of table: exact key, then a case-insensitive
// key, then a match on the last name part of either side.
func (s Schema) lookup(table string) (map[string]string, bool) {
	if len(s) == 0 || table == "" {
		return nil, false
	}
	if cols, ok := s[table]; ok {
		return cols, true
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, table) {
			return s[k], true
		}
	}
	base := lastPart(table)
	for _, k := range keys {
		if strings.EqualFold(lastPart(k), base) {
			return s[k], true
		}
	}
	return nil, false
}

// Columns returns the sorted column names of table, or nil when the table
// is unknown.
func (s Schema) Columns(table string) []string {
	cols, ok := s.lookup(table)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(cols))
	for c := range cols {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HasTable reports whether table is described.
func (s Schema) HasTable(table string) bool {
	_, ok := s.lookup(table)
	return ok
}

// Type returns the declared type of table.column.
func (s Schema) Type(table, column string) (string, bool) {
	cols, ok := s.lookup(table)
	if !ok {
		return "", false
	}
	if t, ok := cols[column]; ok {
		return t, true
	}
	for c, t := range cols {
		if strings.EqualFold(c, column) {
			return t, true
		}
	}
	return "", false
}

func lastPart(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
