package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Long: `Start an HTTP server exposing the analyzer as JSON endpoints:

  GET  /healthz
  GET  /v1/dialects
  POST /v1/tables
  POST /v1/single-select
  POST /v1/rename
  POST /v1/limit
  POST /v1/lineage

With --watch the schema file is reloaded whenever it changes.`,
		Example: `  # Serve on the default address
  sqllineage serve

  # Serve with a schema that is reloaded on change
  sqllineage serve --addr :9000 --schema-file schema.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := cmdCtx.Cfg
			srv := server.New(server.Config{
				Analyzer:       cmdCtx.Analyzer,
				Addr:           cfg.Server.Addr,
				DefaultDialect: dialectFor(cfg),
				Schema:         cmdCtx.Schema,
				SchemaFile:     cfg.SchemaFile,
				Watch:          cfg.Server.WatchSchema,
				Logger:         cmdCtx.Logger,
			})

			cmdCtx.Renderer.Success(fmt.Sprintf("listening on %s", cfg.Server.Addr))
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8089)")
	cmd.Flags().Bool("watch", false, "Reload the schema file when it changes")

	return cmd
}
