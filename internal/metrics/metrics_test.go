package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DocumentIngested()
	m.ChunksStored(12)
	m.ChunksStored(0)
	m.LinksTouched(3)
	m.ProviderFallback("vision", "timeout")
	m.ProviderFallback("vision", "timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsIngested))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.chunksStored))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.linksTouched))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.providerFallbacks.WithLabelValues("vision", "timeout")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DocumentIngested()
		m.DocumentDeleted()
		m.ChunksStored(1)
		m.LinksTouched(1)
		m.ProviderFallback("text", "unavailable")
	})
}
