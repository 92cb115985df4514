package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/llm"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
)

// Embedder turns chunk text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Loader embeds chunks and writes them under their parent document
type Loader struct {
	store    Store
	embedder Embedder
	guard    *llm.Guard
	metrics  *metrics.Metrics
	logger   *zap.Logger
	newID    func() string
	dim      int
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithGuard routes embedding calls through g
func WithGuard(g *llm.Guard) LoaderOption {
	return func(l *Loader) { l.guard = g }
}

// WithMetrics records chunk and fallback counts
func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// WithDimension rejects vectors whose length is not n, the size of the
// vector index
func WithDimension(n int) LoaderOption {
	return func(l *Loader) { l.dim = n }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a chunk loader
func NewLoader(store Store, embedder Embedder, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:    store,
		embedder: embedder,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger)
	return l
}

// StoreChunks embeds chunks, replaces the previous chunks of filename with
// them and links them to the document. Chunks whose embedding fails are stored
// without one. It returns the number of chunks written.
func (l *Loader) StoreChunks(ctx context.Context, chunks []Chunk, filename string) (int, error) {
	l.logger.Info("vectorizing chunks", zap.String("document", filename), zap.Int("chunks", len(chunks)))

	rows := make([]Chunk, len(chunks))
	for i, c := range chunks {
		c.ID = l.newID()
		c.ChunkIndex = i
		c.ParentDoc = filename

		res := llm.Call(ctx, l.guard, func(ctx context.Context) ([]float32, error) {
			v, err := l.embedder.Embed(ctx, c.Text)
			if err == nil && l.dim > 0 && len(v) != l.dim {
				return nil, fmt.Errorf("%w: vector has %d dimensions, index has %d", llm.ErrBadResponse, len(v), l.dim)
			}
			return v, err
		})
		if !res.OK() {
			l.logger.Warn("storing chunk without embedding",
				zap.String("document", filename),
				zap.Int("chunk_index", i),
				zap.Error(res.Failure),
			)
			l.metrics.ProviderFallback(res.Failure.Provider, string(res.Failure.Reason))
		}
		c.Embedding = res.Value
		rows[i] = c
	}

	if err := l.store.PruneChunks(ctx, filename); err != nil {
		return 0, fmt.Errorf("failed to prune chunks for %s: %w", filename, err)
	}
	if len(rows) > 0 {
		if err := l.store.InsertChunks(ctx, rows); err != nil {
			return 0, fmt.Errorf("failed to insert chunks for %s: %w", filename, err)
		}
	}
	if err := l.store.LinkChunks(ctx, filename); err != nil {
		return 0, fmt.Errorf("failed to link chunks for %s: %w", filename, err)
	}

	l.metrics.ChunksStored(len(rows))
	l.logger.Info("vector storage and parent-child linking complete", zap.String("document", filename))
	return len(rows), nil
}
