package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/schema"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := dialect.Parse(c.Dialect); err != nil {
		return fmt.Errorf("invalid dialect: %w", err)
	}

	if !validOutput(c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of: %s)", c.OutputFormat, strings.Join(outputModes, ", "))
	}

	if c.MaxQueryLength < 0 {
		return fmt.Errorf("max_query_length must be non-negative, got %d", c.MaxQueryLength)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative, got %d", c.MaxDepth)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}

	if c.Database.Driver != "" && !schema.IsDriver(c.Database.Driver) {
		return fmt.Errorf("unknown database driver %q (available: %s)", c.Database.Driver, strings.Join(schema.Drivers(), ", "))
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.driver is set")
	}
	return nil
}

func validOutput(mode string) bool {
	for _, m := range outputModes {
		if strings.EqualFold(mode, m) {
			return true
		}
	}
	return false
}
