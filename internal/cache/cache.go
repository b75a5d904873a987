// Package cache persists analyzer results in SQLite.
//
// Entries are keyed by the xxh3-128 hash of the operation, dialect and
// input. The store keeps at most MaxEntries rows, evicting the oldest.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
)

// DefaultMaxEntries bounds the number of cached results.
const DefaultMaxEntries = 10000

// Store is a SQLite-backed analyzer.Cache.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

var _ analyzer.Cache = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries sets the row cap. Zero or less disables eviction.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		s.maxEntries = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the cache database at path and applies pending
// migrations. Use ":memory:" for a private in-memory store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:       path,
		maxEntries: DefaultMaxEntries,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	s.logger.Debug("cache opened", "path", path, "max_entries", s.maxEntries)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Hash returns the hex xxh3-128 digest identifying key.
func Hash(key analyzer.Key) string {
	h := xxh3.New()
	_, _ = io.WriteString(h, key.String())
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

// Get returns the payload stored for key.
func (s *Store) Get(ctx context.Context, key analyzer.Key) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, fmt.Errorf("database not opened")
	}
	hash := Hash(key)

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE key_hash = ?`, hash,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE results SET hits = hits + 1 WHERE key_hash = ?`, hash,
	); err != nil {
		s.logger.Warn("failed to record cache hit", "error", err)
	}
	return payload, true, nil
}

// Put stores payload under key, replacing any previous entry, then evicts
// the oldest rows beyond the cap.
func (s *Store) Put(ctx context.Context, key analyzer.Key, payload []byte) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, key_hash, op, dialect, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at`,
		uuid.New().String(), Hash(key), key.Op, key.Dialect, payload, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return s.evict(ctx)
}

func (s *Store) evict(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM results WHERE id IN (
			SELECT id FROM results
			ORDER BY created_at DESC, rowid DESC
			LIMIT -1 OFFSET ?
		)`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("cache entries evicted", "count", n)
	}
	return nil
}

// Stats summarizes the store.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
}

// Stats returns the entry count and total hits.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s.db == nil {
		return Stats{}, fmt.Errorf("database not opened")
	}
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM results`,
	).Scan(&st.Entries, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return st, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
