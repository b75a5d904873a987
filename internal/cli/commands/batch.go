package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// BatchOptions holds options for the batch command.
type BatchOptions struct {
	Concurrency int
}

// FileResult is the analysis of one file.
type FileResult struct {
	File    string            `json:"file"`
	Tables  []string          `json:"tables"`
	Lineage *analyzer.Lineage `json:"lineage,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <dir|glob>...",
		Short: "Analyze many .sql files concurrently",
		Long: `Compute tables and column lineage for every .sql file under the given
directories or matching the given glob patterns.

Files are analyzed concurrently; results are printed in path order. A file
that fails to parse is reported without stopping the others.`,
		Example: `  sqllineage batch models/ --concurrency 8
  sqllineage batch 'queries/*.sql' -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			files, err := collectSQLFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no .sql files found in %s", strings.Join(args, ", "))
			}

			results, err := analyzeFiles(cmd.Context(), cmdCtx.Analyzer, files, dialectFor(cmdCtx.Cfg), cmdCtx.Schema, opts.Concurrency)
			if err != nil {
				return err
			}
			return renderBatch(cmdCtx.Renderer, results)
		},
	}

	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "j", runtime.NumCPU(), "Number of files analyzed at once")

	return cmd
}

// collectSQLFiles expands directories recursively and glob patterns into
// a sorted, deduplicated list of .sql files.
func collectSQLFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sql") {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
			}
			continue
		}
		if err == nil {
			add(arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no such file or pattern: %s", arg)
		}
		for _, m := range matches {
			if strings.EqualFold(filepath.Ext(m), ".sql") {
				add(m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// analyzeFiles runs tables and lineage for each file with at most
// concurrency files in flight. Results keep the order of files.
func analyzeFiles(ctx context.Context, a *analyzer.Analyzer, files []string, dialectName string, sc lineage.Schema, concurrency int) ([]FileResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeFile(gctx, a, file, dialectName, sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func analyzeFile(ctx context.Context, a *analyzer.Analyzer, file, dialectName string, sc lineage.Schema) FileResult {
	res := FileResult{File: file, Tables: []string{}}

	data, err := os.ReadFile(file) //nolint:gosec // paths come from the user's arguments
	if err != nil {
		res.Error = err.Error()
		return res
	}
	sql := string(data)

	tables, err := a.GetTables(ctx, sql, dialectName)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if tables != nil {
		res.Tables = tables
	}

	lin, err := a.ColumnLineage(ctx, sql, dialectName, sc)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Lineage = lin
	return res
}

func renderBatch(r *output.Renderer, results []FileResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	failed := 0
	for _, res := range results {
		r.Header(1, res.File)
		if res.Error != "" {
			failed++
			r.Error(fmt.Sprintf("%s: %s", res.File, res.Error))
			continue
		}
		if err := renderTables(r, res.Tables); err != nil {
			return err
		}
		if res.Lineage != nil {
			if err := renderLineage(r, res.Lineage); err != nil {
				return err
			}
		}
		r.Println()
	}
	r.Muted(fmt.Sprintf("%d files analyzed, %d failed", len(results), failed))
	return nil
}
