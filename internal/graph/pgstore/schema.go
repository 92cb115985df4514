package pgstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// schemaStatements returns the DDL for a vector column of dimension
func schemaStatements(dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT '',
			semantic_needs TEXT[] NOT NULL DEFAULT '{}',
			explicit_refs TEXT[] NOT NULL DEFAULT '{}',
			content_hash TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			parent_doc TEXT NOT NULL,
			chunk_index INT NOT NULL,
			text TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			page INT NOT NULL DEFAULT 0,
			embedding vector(%d)
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS chunks_parent_doc_idx ON chunks (parent_doc)`,
		`CREATE TABLE IF NOT EXISTS has_chunk (
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_id TEXT NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
			PRIMARY KEY (document_id, chunk_id)
		)`,
		`CREATE TABLE IF NOT EXISTS document_references (
			source TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			target TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			type TEXT NOT NULL DEFAULT 'inferred',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (source, target),
			CHECK (source <> target)
		)`,
		`CREATE INDEX IF NOT EXISTS vector_index ON chunks USING hnsw (embedding vector_cosine_ops)`,
	}
}

// EnsureSchema creates the extension, tables and the vector index
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dimension) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Info("graph schema ready", zap.Int("dimension", s.dimension))
	return nil
}
