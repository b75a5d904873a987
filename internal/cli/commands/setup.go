package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cache"
	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/schema"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Analyzer *analyzer.Analyzer
	Renderer *output.Renderer
	Schema   lineage.Schema
}

// NewCommandContext creates a CommandContext with an analyzer, renderer and
// the configured schema. The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := loadSchema(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []analyzer.Option{
		analyzer.WithLogger(logger),
		analyzer.WithMaxQueryLength(cfg.MaxQueryLength),
		analyzer.WithMaxDepth(cfg.MaxDepth),
	}
	cleanup := func() {}
	if cfg.Cache.Enabled {
		store, err := cache.Open(ctx, cfg.Cache.Path,
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		opts = append(opts, analyzer.WithCache(store))
		cleanup = func() { _ = store.Close() }
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Analyzer: analyzer.New(opts...),
		Renderer: r,
		Schema:   sc,
	}, cleanup, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// loadSchema reads the schema file and then overlays the introspected
// database schema, when either is configured.
func loadSchema(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lineage.Schema, error) {
	var sc lineage.Schema
	if cfg.SchemaFile != "" {
		fileSchema, err := schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("schema loaded", "file", cfg.SchemaFile, "tables", len(fileSchema))
		sc = schema.Merge(sc, fileSchema)
	}
	if cfg.Database.HasDatabase() {
		dbSchema, err := schema.Load(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect database: %w", err)
		}
		logger.Debug("schema introspected", "driver", cfg.Database.Driver, "tables", len(dbSchema))
		sc = schema.Merge(sc, dbSchema)
	}
	return sc, nil
}

// readSQL reads the query from the file named by args[0], or from stdin
// when no file or "-" is given.
func readSQL(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0]) //nolint:gosec // user-supplied input file
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// dialectFor returns the configured dialect.
func dialectFor(cfg *config.Config) string {
	if cfg.Dialect == "" {
		return config.DefaultDialect
	}
	return cfg.Dialect
}
