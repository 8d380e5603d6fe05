package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OllamaClient talks to a local Ollama instance. Every call runs through
// the delegate circuit breaker so a stopped daemon fails fast.
type OllamaClient struct {
	baseURL string
	client  *http.Client
	breaker *Breaker
	model   string
	timeout time.Duration
}

// OllamaConfig holds Ollama client settings.
type OllamaConfig struct {
	// BaseURL defaults to http://localhost:11434
	BaseURL string

	// Model defaults to qwen2.5:7b
	Model string

	// Timeout defaults to 60s; extraction prompts carry document excerpts
	// and local models answer slowly
	Timeout time.Duration
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// Ollama returns a 2D embeddings array; only the first row is used.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient creates a client, applying defaults for unset fields.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: NewBreaker(),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Complete sends a completion request and returns the raw response text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var data ollamaGenerateResponse
		err := postJSON(ctx, c.client, c.baseURL+"/api/generate", nil,
			ollamaGenerateRequest{Model: c.model, Prompt: prompt}, &data)
		return data.Response, err
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("ollama: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var data ollamaEmbedResponse
		if err := postJSON(ctx, c.client, c.baseURL+"/api/embed", nil,
			ollamaEmbedRequest{Model: c.model, Input: text}, &data); err != nil {
			return nil, err
		}
		if len(data.Embeddings) == 0 || len(data.Embeddings[0]) == 0 {
			return nil, fmt.Errorf("ollama returned empty embedding vector")
		}
		return data.Embeddings[0], nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

// HealthCheck verifies the daemon answers /api/version. Not routed through
// the breaker: the health check is how the breaker's backend recovers.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.model
}

var _ TextGenerator = (*OllamaClient)(nil)
var _ EmbeddingGenerator = (*OllamaClient)(nil)
