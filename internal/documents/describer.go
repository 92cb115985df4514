package documents

import (
	"context"

	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/llm"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
)

const (
	// ImagePrompt is sent with every extracted image
	ImagePrompt = "Describe this image in detail for a technical RAG system."
	// ImageAnalysisFailed replaces the description when the vision call fails
	ImageAnalysisFailed = "Image analysis failed."
)

// VisionModel describes an image
type VisionModel interface {
	Describe(ctx context.Context, prompt string, image []byte) (string, error)
}

// Describer produces a description for every image, falling back to a fixed
// placeholder when the vision provider fails
type Describer struct {
	model   VisionModel
	guard   *llm.Guard
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDescriber creates a describer. guard and m may be nil.
func NewDescriber(model VisionModel, guard *llm.Guard, m *metrics.Metrics, logger *zap.Logger) *Describer {
	return &Describer{model: model, guard: guard, metrics: m, logger: logging.OrNop(logger)}
}

// Describe returns the model's description of image, or ImageAnalysisFailed
func (d *Describer) Describe(ctx context.Context, image []byte) string {
	res := llm.Call(ctx, d.guard, func(ctx context.Context) (string, error) {
		return d.model.Describe(ctx, ImagePrompt, image)
	})
	if !res.OK() {
		d.logger.Warn("image analysis failed", zap.Error(res.Failure))
		d.metrics.ProviderFallback(res.Failure.Provider, string(res.Failure.Reason))
	}
	return res.Or(ImageAnalysisFailed)
}
