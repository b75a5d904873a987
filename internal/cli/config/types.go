// Package config provides configuration management for the sqllineage CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	Dialect        string         `koanf:"dialect"`
	OutputFormat   string         `koanf:"output"`
	Verbose        bool           `koanf:"verbose"`
	MaxQueryLength int            `koanf:"max_query_length"`
	MaxDepth       int            `koanf:"max_depth"`
	SchemaFile     string         `koanf:"schema_file"`
	Cache          CacheConfig    `koanf:"cache"`
	Server         ServerConfig   `koanf:"server"`
	Database       DatabaseConfig `koanf:"database"`
}

// CacheConfig configures the persistent result cache.
type CacheConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxEntries int    `koanf:"max_entries"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string `koanf:"addr"`
	WatchSchema bool   `koanf:"watch_schema"`
}

// DatabaseConfig names a live database to introspect for the schema.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Schema string `koanf:"schema"`
}

// HasDatabase reports whether a database source is configured.
func (d DatabaseConfig) HasDatabase() bool {
	return d.Driver != "" && d.DSN != ""
}

// Default configuration values.
const (
	DefaultDialect         = "generic"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMaxQueryLength  = 10000
	DefaultMaxDepth        = 128
	DefaultCachePath       = ".sqllineage/cache.db"
	DefaultCacheMaxEntries = 10000
	DefaultServerAddr      = ":8089"
)

// Default returns a config populated with defaults.
func Default() *Config {
	return &Config{
		Dialect:        DefaultDialect,
		OutputFormat:   DefaultOutput,
		MaxQueryLength: DefaultMaxQueryLength,
		MaxDepth:       DefaultMaxDepth,
		Cache: CacheConfig{
			Path:       DefaultCachePath,
			MaxEntries: DefaultCacheMaxEntries,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}
