// Package metrics exposes ingestion and linking counters. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docgraph"

// Metrics holds the pipeline counters
type Metrics struct {
	documentsIngested prometheus.Counter
	documentsDeleted  prometheus.Counter
	chunksStored      prometheus.Counter
	linksTouched      prometheus.Counter
	providerFallbacks *prometheus.CounterVec
}

// New registers the counters on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documentsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents extracted, summarised and stored.",
		}),
		documentsDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_deleted_total",
			Help:      "Documents removed together with their chunks.",
		}),
		chunksStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_stored_total",
			Help:      "Chunk nodes written to the graph.",
		}),
		linksTouched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_touched_total",
			Help:      "REFERENCES edges created or refreshed by linking passes.",
		}),
		providerFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Provider calls that failed and were replaced by a default value.",
		}, []string{"provider", "reason"}),
	}
}

// DocumentIngested counts one ingested document
func (m *Metrics) DocumentIngested() {
	if m != nil {
		m.documentsIngested.Inc()
	}
}

// DocumentDeleted counts one deleted document
func (m *Metrics) DocumentDeleted() {
	if m != nil {
		m.documentsDeleted.Inc()
	}
}

// ChunksStored adds n stored chunks
func (m *Metrics) ChunksStored(n int) {
	if m != nil && n > 0 {
		m.chunksStored.Add(float64(n))
	}
}

// LinksTouched adds n touched edges
func (m *Metrics) LinksTouched(n int) {
	if m != nil && n > 0 {
		m.linksTouched.Add(float64(n))
	}
}

// ProviderFallback counts a provider failure that was replaced by a default
func (m *Metrics) ProviderFallback(provider, reason string) {
	if m != nil {
		m.providerFallbacks.WithLabelValues(provider, reason).Inc()
	}
}
