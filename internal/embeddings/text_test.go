package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])

		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = float32(len(req["prompt"])) / 100
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
}

func TestEmbed(t *testing.T) {
	srv := vectorServer(t, 8)
	defer srv.Close()

	e := NewTextEmbedder(srv.URL, "", "", 8)
	vec, err := e.Embed(context.Background(), "  turbine  ")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.InDelta(t, 0.07, vec[0], 1e-6)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	srv := vectorServer(t, 4)
	defer srv.Close()

	_, err := NewTextEmbedder(srv.URL, "", "", 768).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbed_EmptyText(t *testing.T) {
	_, err := NewTextEmbedder("http://unused", "", "", 0).Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestNewTextEmbedder_Defaults(t *testing.T) {
	e := NewTextEmbedder("", "", "", 0)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, "nomic-embed-text", e.model)
	assert.Equal(t, "http://localhost:11434", e.baseURL)
}
