package cache_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cache"
	"github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
)

func openStore(t *testing.T, opts ...cache.Option) *cache.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	opts = append([]cache.Option{cache.WithLogger(testutil.NewTestLogger(t))}, opts...)
	s, err := cache.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Migrates(t *testing.T) {
	s := openStore(t)
	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	key := analyzer.Key{Op: analyzer.OpTables, Dialect: "generic", Input: "SELECT 1"}

	s, err := cache.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, key, []byte(`["a"]`)))
	require.NoError(t, s.Close())

	s, err = cache.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, string(got))
}

func TestGetPut(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	key := analyzer.Key{Op: analyzer.OpLineage, Dialect: "bigquery", Input: "SELECT a FROM t"}

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("first")))
	require.NoError(t, s.Put(ctx, key, []byte("second")))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(got))

	other := key
	other.Dialect = "postgres"
	_, ok, err = s.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Entries: 1, Hits: 1}, st)
}

func TestEviction(t *testing.T) {
	s := openStore(t, cache.WithMaxEntries(3))
	ctx := context.Background()

	keys := make([]analyzer.Key, 5)
	for i := range keys {
		keys[i] = analyzer.Key{Op: analyzer.OpTables, Dialect: "generic", Input: fmt.Sprintf("SELECT %d", i)}
		require.NoError(t, s.Put(ctx, keys[i], []byte("x")))
	}

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)

	for i, key := range keys {
		_, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, i >= 2, ok, "key %d", i)
	}
}

func TestClear(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	key := analyzer.Key{Op: analyzer.OpLimit, Dialect: "tsql", Input: "SELECT a FROM t"}

	require.NoError(t, s.Put(ctx, key, []byte("x")))
	require.NoError(t, s.Clear(ctx))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestHash(t *testing.T) {
	a := analyzer.Key{Op: analyzer.OpTables, Dialect: "generic", Input: "SELECT 1"}
	b := analyzer.Key{Op: analyzer.OpTables, Dialect: "generic", Input: "SELECT 2"}

	assert.Len(t, cache.Hash(a), 32)
	assert.Equal(t, cache.Hash(a), cache.Hash(a))
	assert.NotEqual(t, cache.Hash(a), cache.Hash(b))
}

func TestAnalyzerIntegration(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	a := analyzer.New(analyzer.WithCache(s), analyzer.WithLogger(testutil.NewTestLogger(t)))

	sql := "SELECT x.a FROM x JOIN y ON x.id = y.id"
	first, err := a.GetTables(ctx, sql, "generic")
	require.NoError(t, err)
	second, err := a.GetTables(ctx, sql, "generic")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, first)
	assert.Equal(t, first, second)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int64(1), st.Hits)
}
