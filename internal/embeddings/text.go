package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docgraph/ingest/internal/ollama"
)

var (
	// ErrEmptyText is returned for blank input
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyEmbedding is returned when the provider replies without a vector
	ErrEmptyEmbedding = errors.New("empty embedding returned")
	// ErrDimensionMismatch is returned when the vector does not fit the index
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// TextEmbedder generates text embeddings using Ollama
type TextEmbedder struct {
	baseURL    string
	model      string
	apiKey     string
	dimension  int
	httpClient *http.Client
}

// NewTextEmbedder creates a new text embedder. dimension is the size the vector
// index was created with; replies of any other size are rejected.
func NewTextEmbedder(baseURL, model, apiKey string, dimension int) *TextEmbedder {
	if baseURL == "" {
		baseURL = ollama.DefaultBaseURL
	}
	if model == "" {
		model = "nomic-embed-text" // 768-dimensional
	}
	if dimension <= 0 {
		dimension = 768
	}
	return &TextEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Dimension returns the expected vector size
func (e *TextEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates an embedding for the given text
func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	payload := map[string]interface{}{
		"model":  e.model,
		"prompt": text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if len(result.Embedding) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(result.Embedding), e.dimension)
	}

	return result.Embedding, nil
}
