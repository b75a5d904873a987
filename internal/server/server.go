// Package server exposes the analyzer over HTTP with JSON bodies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqllineage/internal/schema"
	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = ":8089"

// Config holds configuration for the server.
type Config struct {
	Analyzer       *analyzer.Analyzer
	Addr           string
	DefaultDialect string
	// Schema is used for lineage requests that carry no schema of their own.
	Schema lineage.Schema
	// SchemaFile, when set with Watch, is reloaded into Schema on change.
	SchemaFile string
	Watch      bool
	Logger     *slog.Logger
}

// Server is the HTTP boundary.
type Server struct {
	analyzer       *analyzer.Analyzer
	addr           string
	defaultDialect string
	schemaFile     string
	watch          bool
	logger         *slog.Logger

	mu     sync.RWMutex
	schema lineage.Schema
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Analyzer == nil {
		cfg.Analyzer = analyzer.New(analyzer.WithLogger(cfg.Logger))
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DefaultDialect == "" {
		cfg.DefaultDialect = "generic"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		analyzer:       cfg.Analyzer,
		addr:           cfg.Addr,
		defaultDialect: cfg.DefaultDialect,
		schemaFile:     cfg.SchemaFile,
		watch:          cfg.Watch,
		logger:         cfg.Logger,
		schema:         cfg.Schema,
	}
}

// Schema returns the current default schema.
func (s *Server) Schema() lineage.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

func (s *Server) setSchema(sc lineage.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = sc
}

// Handler returns the router with every route and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		requestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/dialects", s.handleDialects)
		r.Post("/tables", s.handleTables)
		r.Post("/single-select", s.handleSingleSelect)
		r.Post("/rename", s.handleRename)
		r.Post("/limit", s.handleLimit)
		r.Post("/lineage", s.handleLineage)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.schemaFile != "" {
		eg.Go(func() error {
			return s.watchSchema(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// reloadSchema re-reads the schema file, keeping the old schema on failure.
func (s *Server) reloadSchema() {
	sc, err := schema.LoadFile(s.schemaFile)
	if err != nil {
		s.logger.Error("schema reload failed", "file", s.schemaFile, "error", err)
		return
	}
	s.setSchema(sc)
	s.logger.Info("schema reloaded", "file", s.schemaFile, "tables", len(sc))
}
