package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/docgraph/ingest/internal/graph"
)

const targetedLinkerQuery = `
INSERT INTO document_references (source, target, type, updated_at)
SELECT this.id, target.id, $2, NOW()
FROM documents this
JOIN documents target ON target.id <> this.id
WHERE this.id = $1
  AND (
    EXISTS (SELECT 1 FROM unnest(this.semantic_needs) AS need
            WHERE strpos(lower(target.summary), lower(need)) > 0)
    OR EXISTS (SELECT 1 FROM unnest(this.explicit_refs) AS ref
               WHERE strpos(lower(target.id), lower(ref)) > 0)
  )
ON CONFLICT (source, target) DO UPDATE
SET type = EXCLUDED.type, updated_at = EXCLUDED.updated_at`

// UpsertDocument inserts the document or overwrites its properties
func (s *Store) UpsertDocument(ctx context.Context, doc graph.Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, summary, semantic_needs, explicit_refs, content_hash, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET summary = EXCLUDED.summary, semantic_needs = EXCLUDED.semantic_needs,
		     explicit_refs = EXCLUDED.explicit_refs, content_hash = EXCLUDED.content_hash,
		     updated_at = NOW()`,
		doc.ID, doc.Summary, nonNil(doc.SemanticNeeds), nonNil(doc.ExplicitRefs), doc.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument deletes a document and its owned chunks in one transaction
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM chunks WHERE id IN (SELECT chunk_id FROM has_chunk WHERE document_id = $1)`,
			id,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// GetDocument retrieves a document by id
func (s *Store) GetDocument(ctx context.Context, id string) (*graph.Document, error) {
	var doc graph.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, summary, semantic_needs, explicit_refs, content_hash, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(
		&doc.ID, &doc.Summary, &doc.SemanticNeeds, &doc.ExplicitRefs,
		&doc.ContentHash, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, graph.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &doc, nil
}

// ListDocumentIDs retrieves all document ids in order
func (s *Store) ListDocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan document ids: %w", err)
	}
	return ids, nil
}

// References lists the outbound edges of source
func (s *Store) References(ctx context.Context, source string) ([]graph.Reference, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, target, type, updated_at
		 FROM document_references WHERE source = $1 ORDER BY target`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list references of %s: %w", source, err)
	}
	defer rows.Close()

	var refs []graph.Reference
	for rows.Next() {
		var r graph.Reference
		if err := rows.Scan(&r.Source, &r.Target, &r.Type, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// PruneChunks deletes the chunks of parentDoc; has_chunk rows cascade
func (s *Store) PruneChunks(ctx context.Context, parentDoc string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE parent_doc = $1`, parentDoc); err != nil {
		return fmt.Errorf("failed to prune chunks of %s: %w", parentDoc, err)
	}
	return nil
}

// InsertChunks inserts multiple chunks in one batch
func (s *Store) InsertChunks(ctx context.Context, chunks []graph.Chunk) error {
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(
			`INSERT INTO chunks (id, parent_doc, chunk_index, text, source, page, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			chunk.ID, chunk.ParentDoc, chunk.ChunkIndex, chunk.Text, chunk.Source, chunk.Page,
			vectorOrNil(chunk.Embedding),
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		_, err := br.Exec()
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// LinkChunks attaches chunks to their document when it exists
func (s *Store) LinkChunks(ctx context.Context, parentDoc string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO has_chunk (document_id, chunk_id)
		 SELECT d.id, c.id FROM documents d JOIN chunks c ON c.parent_doc = d.id
		 WHERE d.id = $1
		 ON CONFLICT DO NOTHING`,
		parentDoc,
	)
	if err != nil {
		return fmt.Errorf("failed to link chunks of %s: %w", parentDoc, err)
	}
	return nil
}

// RunTargetedLinker upserts outbound references for id and returns the rows touched
func (s *Store) RunTargetedLinker(ctx context.Context, id string) (int, error) {
	tag, err := s.pool.Exec(ctx, targetedLinkerQuery, id, graph.ReferenceInferred)
	if err != nil {
		return 0, fmt.Errorf("failed to link %s: %w", id, err)
	}
	return int(tag.RowsAffected()), nil
}

// vectorOrNil returns a pgvector value, or nil for a missing embedding
func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
