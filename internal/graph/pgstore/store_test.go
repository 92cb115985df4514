package pgstore

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgraph/ingest/internal/graph"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(384)
	joined := strings.Join(stmts, "\n")

	assert.Contains(t, joined, "vector(384)")
	assert.Contains(t, joined, "vector_cosine_ops")
	assert.Contains(t, joined, "CHECK (source <> target)")
	assert.Contains(t, joined, "PRIMARY KEY (source, target)")
}

func TestVectorOrNil(t *testing.T) {
	assert.Nil(t, vectorOrNil(nil))

	v, ok := vectorOrNil([]float32{1, 2}).(pgvector.Vector)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v.Slice())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("POSTGRES_TEST_URI not set")
	}

	ctx := context.Background()
	s, err := New(ctx, Config{URI: uri, Dimension: 3}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestPostgres_LinkAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, b := "itest_A.pdf", "itest_B.pdf"
	t.Cleanup(func() {
		_ = s.DeleteDocument(ctx, a)
		_ = s.DeleteDocument(ctx, b)
	})

	require.NoError(t, s.UpsertDocument(ctx, graph.Document{ID: a, SemanticNeeds: []string{"Turbine Efficiency"}}))
	require.NoError(t, s.UpsertDocument(ctx, graph.Document{ID: b, Summary: "This report covers turbine efficiency metrics."}))

	require.NoError(t, s.PruneChunks(ctx, a))
	require.NoError(t, s.InsertChunks(ctx, []graph.Chunk{
		{ID: "itest_c1", Text: "x", ParentDoc: a, Embedding: []float32{1, 0, 0}},
		{ID: "itest_c2", Text: "y", ParentDoc: a, ChunkIndex: 1},
	}))
	require.NoError(t, s.LinkChunks(ctx, a))

	for i := 0; i < 2; i++ {
		n, err := s.RunTargetedLinker(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	n, err := s.RunTargetedLinker(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, n)

	refs, err := s.References(ctx, a)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, b, refs[0].Target)

	require.NoError(t, s.DeleteDocument(ctx, a))
	_, err = s.GetDocument(ctx, a)
	assert.ErrorIs(t, err, graph.ErrNotFound)

	var orphans int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE parent_doc = $1`, a).Scan(&orphans))
	assert.Zero(t, orphans)
}
