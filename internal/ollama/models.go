package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Priority lists used when no model is configured
var (
	TextModelPriority   = []string{"llama3.2", "llama3.1", "qwen2.5", "mistral", "gemma2", "llama3"}
	VisionModelPriority = []string{"llama3.2-vision", "llava", "minicpm-v", "moondream", "bakllava"}
)

// ModelSelector handles model selection logic
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all available Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", ms.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if ms.client.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ms.client.apiKey)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// SelectBestModel picks the first installed model matching priority, falling
// back to the largest installed model
func (ms *ModelSelector) SelectBestModel(ctx context.Context, priority []string) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	if len(models) == 0 {
		return "", fmt.Errorf("no models available")
	}

	for _, p := range priority {
		for _, model := range models {
			if strings.Contains(strings.ToLower(model.Name), p) {
				return model.Name, nil
			}
		}
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].Size > models[j].Size
	})

	return models[0].Name, nil
}

// GetDefaultModel returns the configured model, or selects one when it is
// empty or not installed
func (ms *ModelSelector) GetDefaultModel(ctx context.Context, configured string, priority []string) (string, error) {
	if configured != "" {
		models, err := ms.ListModels(ctx)
		if err != nil {
			return "", err
		}

		for _, model := range models {
			if model.Name == configured || strings.TrimSuffix(model.Name, ":latest") == configured {
				return configured, nil
			}
		}
	}

	return ms.SelectBestModel(ctx, priority)
}
