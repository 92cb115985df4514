// Package pgstore implements graph.Store on PostgreSQL with pgvector. Nodes map
// to the documents and chunks tables, edges to has_chunk and document_references.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/logging"
)

// Config holds connection settings. URI is a postgres:// connection string;
// Username and Password override the ones it carries when set.
type Config struct {
	URI       string
	Username  string
	Password  string
	Dimension int
}

// Store wraps the database connection pool
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *zap.Logger
}

var _ graph.Store = (*Store)(nil)

// New creates a new database connection
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.Username != "" {
		config.ConnConfig.User = cfg.Username
	}
	if cfg.Password != "" {
		config.ConnConfig.Password = cfg.Password
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 768
	}

	return &Store{pool: pool, dimension: dimension, logger: logging.OrNop(logger)}, nil
}

// Close closes the database connection pool
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
