package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the local Ollama endpoint
const DefaultBaseURL = "http://localhost:11434"

// Client wraps Ollama API interactions
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithAPIKey sends the key as a bearer token (Ollama Cloud and compatible gateways)
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new Ollama client
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // 5 minute timeout for generation requests
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateRequest represents a generation request
type GenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Images  []string               `json:"images,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// GenerateResponse represents a generation response
type GenerateResponse struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"created_at"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// APIError is returned for non-200 replies
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama API error: %d - %s", e.StatusCode, e.Body)
}

// Generate generates text using Ollama
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	resp, err := c.post(ctx, "/api/generate", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result strings.Builder
	decoder := json.NewDecoder(resp.Body)

	for {
		var genResp GenerateResponse
		if err := decoder.Decode(&genResp); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		result.WriteString(genResp.Response)

		if genResp.Done {
			break
		}
	}

	return result.String(), nil
}

// post sends a JSON body and returns the response when the status is 200
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// TextModel binds a client to a model for plain prompts
type TextModel struct {
	client *Client
	model  string
}

// NewTextModel creates a text generator for model
func NewTextModel(client *Client, model string) *TextModel {
	return &TextModel{client: client, model: model}
}

// Complete returns the model's reply to prompt. Temperature is pinned to 0 so
// repeated ingestion of the same file yields stable metadata.
func (m *TextModel) Complete(ctx context.Context, prompt string) (string, error) {
	return m.client.Generate(ctx, &GenerateRequest{
		Model:   m.model,
		Prompt:  prompt,
		Options: map[string]interface{}{"temperature": 0},
	})
}

// VisionModel binds a client to a multimodal model
type VisionModel struct {
	client *Client
	model  string
}

// NewVisionModel creates an image describer for model
func NewVisionModel(client *Client, model string) *VisionModel {
	return &VisionModel{client: client, model: model}
}

// Describe sends the image bytes with prompt and returns the description
func (m *VisionModel) Describe(ctx context.Context, prompt string, image []byte) (string, error) {
	return m.client.Generate(ctx, &GenerateRequest{
		Model:   m.model,
		Prompt:  prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
		Options: map[string]interface{}{"temperature": 0},
	})
}
