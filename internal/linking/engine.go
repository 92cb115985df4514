// Package linking infers REFERENCES edges between documents.
package linking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
)

// Engine runs linking passes against a graph store
type Engine struct {
	store   graph.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a linking engine
func New(store graph.Store, m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{store: store, metrics: m, logger: logging.OrNop(logger)}
}

// Link runs the targeted pass for filename: edges go from filename to every
// document whose summary contains one of its needs or whose id contains one
// of its explicit references. It never creates edges into filename.
func (e *Engine) Link(ctx context.Context, filename string) (int, error) {
	e.logger.Info("semantic linking", zap.String("document", filename))

	links, err := e.store.RunTargetedLinker(ctx, filename)
	if err != nil {
		return 0, err
	}

	e.metrics.LinksTouched(links)
	e.logger.Info("links established", zap.String("document", filename), zap.Int("links", links))
	return links, nil
}

// RelinkAll runs the targeted pass for every document, which also repairs
// edges into documents ingested after their referrers
func (e *Engine) RelinkAll(ctx context.Context) (int, error) {
	ids, err := e.store.ListDocumentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.Link(ctx, id)
		if err != nil {
			return total, fmt.Errorf("relink stopped at %s: %w", id, err)
		}
		total += n
	}

	e.logger.Info("global relink complete", zap.Int("documents", len(ids)), zap.Int("links", total))
	return total, nil
}
