package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cache"
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
)

// CacheStatsOutput is the JSON shape of cache stats.
type CacheStatsOutput struct {
	Path string `json:"path"`
	cache.Stats
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}
	cmd.AddCommand(newCacheStatsCommand(), newCacheClearCommand())
	return cmd
}

func openCache(cmd *cobra.Command) (*cache.Store, *output.Renderer, error) {
	cfg := getConfig()
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	store, err := cache.Open(cmd.Context(), cfg.Cache.Path, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, r, nil
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry and hit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, r, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(CacheStatsOutput{Path: store.Path(), Stats: st})
			}
			r.Table([]string{"Path", "Entries", "Hits"}, [][]string{
				{store.Path(), fmt.Sprint(st.Entries), fmt.Sprint(st.Hits)},
			})
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, r, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			r.Success("cache cleared")
			return nil
		},
	}
}
