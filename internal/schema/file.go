// Package schema loads advisory table schemas for column lineage, either
// from a YAML/JSON file or by introspecting a live database.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// LoadFile reads a schema file shaped `table: {column: type}`. JSON files
// are accepted as YAML.
func LoadFile(path string) (lineage.Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document. An empty document yields an empty schema.
func Parse(data []byte) (lineage.Schema, error) {
	var raw map[string]map[string]*string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	s := make(lineage.Schema, len(raw))
	for table, cols := range raw {
		if table == "" {
			return nil, fmt.Errorf("empty table name")
		}
		s[table] = make(map[string]string, len(cols))
		for col, typ := range cols {
			if col == "" {
				return nil, fmt.Errorf("empty column name in table %s", table)
			}
			if typ != nil {
				s[table][col] = *typ
			} else {
				s[table][col] = ""
			}
		}
	}
	return s, nil
}

// Merge copies every table of src into dst, replacing tables of the same
// name, and returns dst. A nil dst is allocated.
func Merge(dst, src lineage.Schema) lineage.Schema {
	if dst == nil {
		dst = make(lineage.Schema, len(src))
	}
	for table, cols := range src {
		dst[table] = cols
	}
	return dst
}
