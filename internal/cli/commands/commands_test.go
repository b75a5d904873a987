package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	"github.com/leapstack-labs/sqllineage/internal/cli/testutil"
	logtest "github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

func TestParseMappings(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", want: map[string]string{}},
		{
			name:  "several",
			pairs: []string{"raw.orders=staging.orders", " users = dim_users "},
			want:  map[string]string{"raw.orders": "staging.orders", "users": "dim_users"},
		},
		{name: "missing equals", pairs: []string{"orders"}, wantErr: true},
		{name: "empty target", pairs: []string{"orders="}, wantErr: true},
		{name: "empty source", pairs: []string{"=orders"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMappings(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "expected old=new")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectSQLFiles(t *testing.T) {
	dir := testutil.SetupSQLProject(t)
	orders := filepath.Join(dir, "orders.sql")
	broken := filepath.Join(dir, "marts", "broken.sql")
	customers := filepath.Join(dir, "marts", "customers.sql")

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{name: "directory", args: []string{dir}, want: []string{broken, customers, orders}},
		{name: "glob", args: []string{filepath.Join(dir, "marts", "*.sql")}, want: []string{broken, customers}},
		{name: "file", args: []string{orders}, want: []string{orders}},
		{name: "deduplicated", args: []string{orders, dir, orders}, want: []string{broken, customers, orders}},
		{name: "glob skips non-sql", args: []string{filepath.Join(dir, "*")}, want: []string{orders}},
		{name: "missing", args: []string{filepath.Join(dir, "nope", "*.sql")}, wantErr: "no such file or pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectSQLFiles(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzeFiles(t *testing.T) {
	dir := testutil.SetupSQLProject(t)
	files, err := collectSQLFiles([]string{dir})
	require.NoError(t, err)

	a := analyzer.New(analyzer.WithLogger(logtest.NewTestLogger(t)))
	sc := lineage.Schema{"orders": {"id": "BIGINT", "total": "NUMERIC", "status": "TEXT", "customer_id": "BIGINT"}}

	for _, concurrency := range []int{0, 1, 4} {
		results, err := analyzeFiles(context.Background(), a, files, "generic", sc, concurrency)
		require.NoError(t, err)
		require.Len(t, results, 3)

		for i, res := range results {
			assert.Equal(t, files[i], res.File)
		}
		// marts/broken.sql
		assert.NotEmpty(t, results[0].Error)
		assert.Nil(t, results[0].Lineage)
		// marts/customers.sql
		assert.Empty(t, results[1].Error)
		assert.Equal(t, []string{"customers", "orders"}, results[1].Tables)
		// orders.sql
		require.NotNil(t, results[2].Lineage)
		assert.Equal(t, "BIGINT", results[2].Lineage.Columns[0].Type)
		require.Len(t, results[2].Lineage.NonSelectedColumns, 1)
		assert.Equal(t, "status", results[2].Lineage.NonSelectedColumns[0].Name)
	}
}

func TestAnalyzeFiles_Canceled(t *testing.T) {
	dir := testutil.SetupSQLProject(t)
	files, err := collectSQLFiles([]string{dir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = analyzeFiles(ctx, analyzer.New(), files, "generic", nil, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderTables(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderTables(tr.Renderer, []string{"a", "db.b"}))
	assert.Contains(t, tr.Output(), "| Table |")
	assert.Contains(t, tr.Output(), "| db.b |")
	testutil.AssertNoANSI(t, tr.Output())

	tr = testutil.NewTestRendererMarkdown()
	require.NoError(t, renderTables(tr.Renderer, nil))
	assert.Contains(t, tr.Output(), "(no tables)")

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, renderTables(tr.Renderer, nil))
	assert.JSONEq(t, `{"tables": []}`, tr.Output())
}

func TestRenderQuery(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderQuery(tr.Renderer, "SELECT 1"))
	assert.Equal(t, "```sql\nSELECT 1\n```\n", tr.Output())
	testutil.AssertValidMarkdown(t, tr.Output())

	tr = testutil.NewTestRendererText()
	require.NoError(t, renderQuery(tr.Renderer, "SELECT 1"))
	assert.Equal(t, "SELECT 1\n", tr.Output())

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, renderQuery(tr.Renderer, "SELECT 1"))
	assert.JSONEq(t, `{"query": "SELECT 1"}`, tr.Output())
}

func TestRenderSingleSelect(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderSingleSelect(tr.Renderer, false))
	assert.Contains(t, tr.Output(), "not a single SELECT statement")

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, renderSingleSelect(tr.Renderer, true))
	assert.JSONEq(t, `{"is_single_select": true}`, tr.Output())
}

func TestRenderLineage(t *testing.T) {
	res := &analyzer.Lineage{
		Columns: []analyzer.ColumnLineage{
			{Name: "a", Upstream: []analyzer.UpstreamColumn{{Column: "a", Table: "t"}, {Column: "x"}}, Type: "INT"},
		},
		NonSelectedColumns: []analyzer.ColumnLineage{
			{Name: "b", Upstream: []analyzer.UpstreamColumn{{Column: "b", Table: "t"}}},
		},
		Errors: []string{"cannot resolve column c"},
	}

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderLineage(tr.Renderer, res))
	out := tr.Output()
	assert.Contains(t, out, "## Columns")
	assert.Contains(t, out, "t.a, x")
	assert.Contains(t, out, "## Filter columns")
	assert.Contains(t, out, "t.b")
	assert.Contains(t, tr.ErrorOutput(), "warning: cannot resolve column c")
	testutil.AssertValidMarkdown(t, out)
}

func TestFormatUpstream(t *testing.T) {
	assert.Equal(t, "", formatUpstream(nil))
	assert.Equal(t, "db.t.a, b", formatUpstream([]analyzer.UpstreamColumn{
		{Column: "a", Table: "db.t"},
		{Column: "b"},
	}))
}

func TestRenderDialects(t *testing.T) {
	infos := dialectInfos()
	require.NotEmpty(t, infos)

	byName := map[string]DialectInfo{}
	for _, d := range infos {
		byName[d.Name] = d
	}
	assert.Equal(t, "top", byName["tsql"].Limit)
	assert.Equal(t, "fetch", byName["oracle"].Limit)
	assert.Equal(t, "``", byName["bigquery"].Quote)

	tr := testutil.NewTestRendererJSON()
	require.NoError(t, renderDialects(tr.Renderer, infos))
	var got []DialectInfo
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, infos, got)
}

// fakeReader feeds fixed lines to the REPL and then reports EOF.
type fakeReader struct {
	lines   []any
	prompts []string
}

func (f *fakeReader) Readline() (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	next := f.lines[0]
	f.lines = f.lines[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

func (f *fakeReader) SetPrompt(p string) { f.prompts = append(f.prompts, p) }

func newTestSession(t *testing.T) (*replSession, *testutil.TestRenderer) {
	t.Helper()
	tr := testutil.NewTestRendererMarkdown()
	return &replSession{
		cmdCtx: &CommandContext{
			Cfg:      config.Default(),
			Logger:   logtest.NewTestLogger(t),
			Analyzer: analyzer.New(),
			Renderer: tr.Renderer,
		},
		dialect: "generic",
	}, tr
}

func TestREPL(t *testing.T) {
	tests := []struct {
		name    string
		lines   []any
		wantOut []string
		wantErr []string
	}{
		{
			name:    "multi-line lineage",
			lines:   []any{"SELECT t.a", "FROM t;"},
			wantOut: []string{"## Columns", "t.a"},
		},
		{
			name:    "tables then lineage again",
			lines:   []any{".tables", "SELECT * FROM x JOIN y ON x.id = y.id;", "SELECT q.b FROM q;"},
			wantOut: []string{"next statement: tables", "| Table |", "| y |", "q.b"},
		},
		{
			name:    "dialect",
			lines:   []any{".dialect", ".dialect tsql", ".dialect cobol"},
			wantOut: []string{"dialect: generic", "dialect set to tsql"},
			wantErr: []string{"unsupported dialect: cobol"},
		},
		{
			name:    "unknown command and parse error",
			lines:   []any{".nope", "SELECT a FROM;"},
			wantErr: []string{"unknown command: .nope", "error: "},
		},
		{
			name:    "interrupt discards buffer",
			lines:   []any{"SELECT broken", readline.ErrInterrupt, "SELECT t.z FROM t;"},
			wantOut: []string{"t.z"},
		},
		{
			name:    "help",
			lines:   []any{".help"},
			wantOut: []string{".dialect [name]", ".quit / .exit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestSession(t)
			require.NoError(t, s.run(context.Background(), &fakeReader{lines: tt.lines}))
			for _, want := range tt.wantOut {
				assert.Contains(t, tr.Output(), want)
			}
			for _, want := range tt.wantErr {
				assert.Contains(t, tr.ErrorOutput(), want)
			}
		})
	}
}

func TestREPL_QuitAndPrompts(t *testing.T) {
	s, tr := newTestSession(t)
	r := &fakeReader{lines: []any{"SELECT 1", ".quit", "SELECT never;"}}
	require.NoError(t, s.run(context.Background(), r))

	assert.Equal(t, []string{replContinuationPrompt, replContinuationPrompt, replPrompt}, r.prompts)
	// .quit is buffered as SQL while a statement is open, so the loop ends at EOF.
	assert.Empty(t, r.lines)
	assert.NotContains(t, tr.Output(), "never")

	s, _ = newTestSession(t)
	r = &fakeReader{lines: []any{".exit", "SELECT 1;"}}
	require.NoError(t, s.run(context.Background(), r))
	assert.Len(t, r.lines, 1)
}

// newTestRoot mirrors the CLI root without config loading, so commands use
// whatever config the test installed or the defaults.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "sqllineage", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewTablesCommand(),
		NewLineageCommand(),
		NewSingleSelectCommand(),
		NewRenameCommand(),
		NewLimitCommand(),
		NewBatchCommand(),
		NewDialectsCommand(),
		NewCacheCommand(),
	)
	return root
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	root := newTestRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestCommands(t *testing.T) {
	dir := testutil.SetupSQLProject(t)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr string
	}{
		{
			name:  "tables from stdin",
			stdin: "SELECT * FROM a JOIN b ON a.id = b.id",
			args:  []string{"tables"},
			want:  "| b |",
		},
		{
			name: "tables from file",
			args: []string{"tables", filepath.Join(dir, "marts", "customers.sql")},
			want: "| customers |",
		},
		{
			name:  "single select",
			stdin: "SELECT 1; SELECT 2",
			args:  []string{"single-select"},
			want:  "not a single SELECT statement",
		},
		{
			name:  "rename",
			stdin: "SELECT a FROM t",
			args:  []string{"rename", "-", "--map", "t=u"},
			want:  "SELECT a FROM u AS t",
		},
		{
			name:    "rename requires map",
			stdin:   "SELECT a FROM t",
			args:    []string{"rename"},
			wantErr: `required flag(s) "map" not set`,
		},
		{
			name:  "limit",
			stdin: "SELECT a FROM t",
			args:  []string{"limit", "--rows", "5"},
			want:  "SELECT a FROM t LIMIT 5",
		},
		{
			name:  "lineage",
			stdin: "SELECT t.a FROM t",
			args:  []string{"lineage"},
			want:  "t.a",
		},
		{
			name:    "lineage parse error",
			stdin:   "SELECT a FROM",
			args:    []string{"lineage"},
			wantErr: "parse error",
		},
		{
			name: "batch",
			args: []string{"batch", dir},
			want: "3 files analyzed, 1 failed",
		},
		{
			name:    "missing file",
			args:    []string{"tables", filepath.Join(dir, "missing.sql")},
			wantErr: "failed to read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := executeCommand(t, tt.stdin, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCacheCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("SQLLINEAGE_CACHE__ENABLED", "true")
	t.Setenv("SQLLINEAGE_CACHE__PATH", path)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	run := func(args ...string) string {
		t.Helper()
		root := newTestRoot()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetIn(strings.NewReader("SELECT a FROM t"))
		root.SetArgs(args)
		require.NoError(t, root.Execute())
		return out.String()
	}

	run("tables")
	run("tables")
	out := run("cache", "stats")
	assert.Contains(t, out, path)
	assert.Contains(t, out, "| 1 | 1 |")

	out = run("cache", "clear")
	assert.Contains(t, out, "cache cleared")
	assert.Contains(t, run("cache", "stats"), "| 0 | 0 |")
}
