// Package neo4jstore implements graph.Store on Neo4j using Cypher.
package neo4jstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/logging"
)

// VectorIndexName is the chunk embedding index
const VectorIndexName = "vector_index"

const (
	upsertDocumentQuery = `
MERGE (d:Document {id: $id})
SET d.filename = $id, d.summary = $summary,
    d.semantic_needs = $needs, d.explicit_refs = $explicit,
    d.content_hash = $hash, d.updated_at = datetime()`

	deleteDocumentQuery = `
MATCH (d:Document {id: $id})
OPTIONAL MATCH (d)-[:HAS_CHUNK]->(c:Chunk)
DETACH DELETE d, c`

	getDocumentQuery = `
MATCH (d:Document {id: $id})
RETURN d.id AS id, d.summary AS summary, d.semantic_needs AS needs,
       d.explicit_refs AS explicit, d.content_hash AS hash, d.updated_at AS updated_at`

	listDocumentsQuery = `MATCH (d:Document) RETURN d.id AS id ORDER BY id`

	referencesQuery = `
MATCH (:Document {id: $id})-[r:REFERENCES]->(t:Document)
RETURN t.id AS target, r.type AS type, r.updated_at AS updated_at
ORDER BY target`

	pruneChunksQuery = `MATCH (c:Chunk {parent_doc: $id}) DETACH DELETE c`

	insertChunksQuery = `
UNWIND $rows AS row
CREATE (c:Chunk {id: row.id})
SET c.text = row.text, c.source = row.source, c.page = row.page,
    c.chunk_index = row.chunk_index, c.parent_doc = row.parent_doc,
    c.embedding = row.embedding`

	linkChunksQuery = `
MATCH (d:Document {id: $id})
MATCH (c:Chunk)
WHERE c.parent_doc = $id
MERGE (d)-[:HAS_CHUNK]->(c)`

	targetedLinkerQuery = `
MATCH (this:Document {id: $id})
MATCH (target:Document) WHERE target.id <> this.id
WITH this, target
WHERE any(need IN this.semantic_needs WHERE toLower(target.summary) CONTAINS toLower(need))
   OR any(ref IN this.explicit_refs WHERE toLower(target.id) CONTAINS toLower(ref))
MERGE (this)-[r:REFERENCES]->(target)
SET r.type = $type, r.updated_at = datetime()
RETURN count(r) AS links`
)

// schemaQueries returns the constraint and index statements for dimension
func schemaQueries(dimension int) []string {
	return []string{
		"CREATE CONSTRAINT document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
		"CREATE CONSTRAINT chunk_id_unique IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
		fmt.Sprintf("CREATE VECTOR INDEX %s IF NOT EXISTS\n"+
			"FOR (c:Chunk) ON (c.embedding)\n"+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			VectorIndexName, dimension),
	}
}

// Config holds connection settings
type Config struct {
	URI       string
	Username  string
	Password  string
	Database  string
	Dimension int
}

// Store is a Neo4j-backed graph.Store
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	dimension int
	logger    *zap.Logger
}

var _ graph.Store = (*Store)(nil)

// New connects to Neo4j and verifies connectivity
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 768
	}

	return &Store{
		driver:    driver,
		database:  cfg.Database,
		dimension: dimension,
		logger:    logging.OrNop(logger),
	}, nil
}

// execute runs query as an auto-routed write transaction and buffers the result
func (s *Store) execute(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	return neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer, opts...)
}

// EnsureSchema creates the uniqueness constraints and the vector index
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, q := range schemaQueries(s.dimension) {
		if _, err := s.execute(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Info("graph schema ready", zap.Int("dimension", s.dimension))
	return nil
}

// UpsertDocument merges the document node and overwrites its properties
func (s *Store) UpsertDocument(ctx context.Context, doc graph.Document) error {
	_, err := s.execute(ctx, upsertDocumentQuery, map[string]any{
		"id":       doc.ID,
		"summary":  doc.Summary,
		"needs":    nonNil(doc.SemanticNeeds),
		"explicit": nonNil(doc.ExplicitRefs),
		"hash":     doc.ContentHash,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument detach-deletes the document and its chunks in one transaction
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.execute(ctx, deleteDocumentQuery, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// GetDocument returns the document or graph.ErrNotFound
func (s *Store) GetDocument(ctx context.Context, id string) (*graph.Document, error) {
	res, err := s.execute(ctx, getDocumentQuery, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return nil, graph.ErrNotFound
	}
	return documentFromRecord(res.Records[0]), nil
}

// ListDocumentIDs returns every document id in order
func (s *Store) ListDocumentIDs(ctx context.Context) ([]string, error) {
	res, err := s.execute(ctx, listDocumentsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		ids = append(ids, stringValue(rec, "id"))
	}
	return ids, nil
}

// References lists the outbound REFERENCES edges of source
func (s *Store) References(ctx context.Context, source string) ([]graph.Reference, error) {
	res, err := s.execute(ctx, referencesQuery, map[string]any{"id": source})
	if err != nil {
		return nil, fmt.Errorf("failed to list references of %s: %w", source, err)
	}
	refs := make([]graph.Reference, 0, len(res.Records))
	for _, rec := range res.Records {
		refs = append(refs, graph.Reference{
			Source:    source,
			Target:    stringValue(rec, "target"),
			Type:      stringValue(rec, "type"),
			UpdatedAt: timeValue(rec, "updated_at"),
		})
	}
	return refs, nil
}

// PruneChunks removes the chunks previously written for parentDoc
func (s *Store) PruneChunks(ctx context.Context, parentDoc string) error {
	if _, err := s.execute(ctx, pruneChunksQuery, map[string]any{"id": parentDoc}); err != nil {
		return fmt.Errorf("failed to prune chunks of %s: %w", parentDoc, err)
	}
	return nil
}

// InsertChunks creates chunk nodes in a single UNWIND statement
func (s *Store) InsertChunks(ctx context.Context, chunks []graph.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if _, err := s.execute(ctx, insertChunksQuery, map[string]any{"rows": chunkRows(chunks)}); err != nil {
		return fmt.Errorf("failed to insert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// LinkChunks merges HAS_CHUNK edges from the document to its chunks
func (s *Store) LinkChunks(ctx context.Context, parentDoc string) error {
	if _, err := s.execute(ctx, linkChunksQuery, map[string]any{"id": parentDoc}); err != nil {
		return fmt.Errorf("failed to link chunks of %s: %w", parentDoc, err)
	}
	return nil
}

// RunTargetedLinker merges outbound REFERENCES edges for id
func (s *Store) RunTargetedLinker(ctx context.Context, id string) (int, error) {
	res, err := s.execute(ctx, targetedLinkerQuery, map[string]any{
		"id":   id,
		"type": graph.ReferenceInferred,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to link %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	links, _ := res.Records[0].Get("links")
	n, ok := links.(int64)
	if !ok {
		return 0, errors.New("linker returned no count")
	}
	return int(n), nil
}

// Close releases the driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
