package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	cfg.Logger = logger
	if cfg.Analyzer == nil {
		cfg.Analyzer = analyzer.New(analyzer.WithLogger(logger))
	}
	return New(cfg)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlers(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{
			name: "tables",
			path: "/v1/tables",
			body: `{"query": "SELECT * FROM a JOIN b ON a.id = b.id", "dialect": "generic"}`,
			want: `{"tables":["a","b"]}`,
		},
		{
			name: "tables default dialect",
			path: "/v1/tables",
			body: `{"query": "SELECT * FROM a"}`,
			want: `{"tables":["a"]}`,
		},
		{
			name: "tables unsupported dialect",
			path: "/v1/tables",
			body: `{"query": "SELECT 1", "dialect": "cobol"}`,
			want: `{"tables":[],"error":"unsupported dialect: cobol"}`,
		},
		{
			name: "single select",
			path: "/v1/single-select",
			body: `{"query": "SELECT 1", "dialect": "postgres"}`,
			want: `{"is_single_select":true}`,
		},
		{
			name: "single select empty",
			path: "/v1/single-select",
			body: `{"query": "", "dialect": "postgres"}`,
			want: `{"is_single_select":false,"error":"cannot parse query"}`,
		},
		{
			name: "rename",
			path: "/v1/rename",
			body: `{"query": "SELECT a FROM t", "dialect": "generic", "table_mapping": {"t": "u"}}`,
			want: `{"query":"SELECT a FROM u AS t"}`,
		},
		{
			name: "limit",
			path: "/v1/limit",
			body: `{"query": "SELECT a FROM t", "dialect": "tsql", "limit": 10}`,
			want: `{"query":"SELECT TOP 10 a FROM t"}`,
		},
		{
			name: "limit missing",
			path: "/v1/limit",
			body: `{"query": "SELECT a FROM t", "dialect": "tsql"}`,
			want: `{"query":"","error":"limit is required"}`,
		},
		{
			name: "lineage",
			path: "/v1/lineage",
			body: `{"query": "SELECT t.a FROM t WHERE t.b = 1", "dialect": "generic"}`,
			want: `{"columns":[{"name":"a","upstream":[{"column":"a","table":"t"}]}],` +
				`"non_selected_columns":[{"name":"b","upstream":[{"column":"b","table":"t"}]}],"errors":[]}`,
		},
		{
			name: "lineage with schema",
			path: "/v1/lineage",
			body: `{"query": "SELECT a FROM t", "dialect": "generic", "schema": {"t": {"a": "INT"}}}`,
			want: `{"columns":[{"name":"a","upstream":[{"column":"a","table":"t"}],"type":"INT"}],` +
				`"non_selected_columns":[],"errors":[]}`,
		},
		{
			name: "lineage parse error",
			path: "/v1/lineage",
			body: `{"query": "SELECT a FROM", "dialect": "generic"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.want != "" {
				assert.JSONEq(t, tt.want, rec.Body.String())
				return
			}
			var resp LineageResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Columns)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()
	rec := post(t, h, "/v1/tables", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestOversizedBody(t *testing.T) {
	h := newTestServer(t, Config{})
	body := `{"query": "SELECT a FROM t` + strings.Repeat(" ", maxBodyBytes) + `"}`
	rec := post(t, h.Handler(), "/v1/tables", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body exceeds")
}

func TestHealthAndDialects(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dialects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DialectsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Dialects, "bigquery")
	assert.Contains(t, resp.Dialects, "postgres")
	assert.IsIncreasing(t, resp.Dialects)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestDefaultSchema(t *testing.T) {
	s := newTestServer(t, Config{Schema: lineage.Schema{"t": {"a": "TEXT"}}})
	rec := post(t, s.Handler(), "/v1/lineage", `{"query": "SELECT a FROM t"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LineageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Columns, 1)
	assert.Equal(t, "TEXT", resp.Columns[0].Type)
}

func TestServeListener_Shutdown(t *testing.T) {
	s := newTestServer(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWatchSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("t:\n  a: INT\n"), 0o600))

	s := newTestServer(t, Config{SchemaFile: path, Watch: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.watchSchema(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("t:\n  a: BIGINT\n"), 0o600))

	assert.Eventually(t, func() bool {
		sc := s.Schema()
		return sc != nil && sc["t"]["a"] == "BIGINT"
	}, 3*time.Second, 25*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
