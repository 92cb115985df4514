package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/config"
	"github.com/docgraph/ingest/internal/graph/memstore"
	"github.com/docgraph/ingest/internal/ollama"
)

func memoryConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Graph.Backend = config.BackendMemory
	cfg.LLM.TextModel = "llama3.2"
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.Storage.LocalRoot = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, memoryConfig(t), aws.Config{Region: "us-east-1"})
	require.NoError(t, err)
	defer c.Close(ctx)

	assert.IsType(t, &memstore.Store{}, c.Store)
	assert.NotNil(t, c.Processor)
	assert.NotNil(t, c.Linker)
	assert.NotNil(t, c.Handler)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Graph.Backend = "sqlite"

	_, err := Build(context.Background(), cfg, aws.Config{})
	assert.ErrorContains(t, err, "unknown graph backend")
}

func TestResolveModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"moondream:latest","size":1}]}`))
	}))
	defer srv.Close()
	client := ollama.NewClient(srv.URL)
	ctx := context.Background()

	assert.Equal(t, "moondream", resolveModel(ctx, client, "moondream", ollama.VisionModelPriority, "x", zap.NewNop()))
	assert.Equal(t, "moondream:latest", resolveModel(ctx, client, "llava", ollama.VisionModelPriority, "x", zap.NewNop()))
	assert.Equal(t, "moondream:latest", resolveModel(ctx, client, "", ollama.VisionModelPriority, "x", zap.NewNop()))

	down := ollama.NewClient("http://127.0.0.1:1")
	assert.Equal(t, "fallback", resolveModel(ctx, down, "", ollama.TextModelPriority, "fallback", zap.NewNop()))
	assert.Equal(t, "llava", resolveModel(ctx, down, "llava", ollama.VisionModelPriority, "fallback", zap.NewNop()))
}
