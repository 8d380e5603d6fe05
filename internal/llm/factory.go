package llm

import "fmt"

// ProviderConfig selects and parameterizes a delegate provider.
type ProviderConfig struct {
	// Provider is one of "ollama", "openai", "anthropic"; empty means ollama
	Provider string

	// APIKey authenticates hosted providers
	APIKey string

	// Model overrides the provider default
	Model string

	// BaseURL overrides the provider endpoint (ollama, openai)
	BaseURL string
}

// NewTextGenerator creates the delegate client for a provider config.
func NewTextGenerator(cfg ProviderConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	default:
		return nil, fmt.Errorf("unsupported delegate provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator creates the embedding client for a provider
// config. Returns (nil, nil) for providers without an embeddings API;
// callers then run without similarity search.
func NewEmbeddingGenerator(cfg ProviderConfig, embeddingModel string) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		model := embeddingModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		model := embeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: model}), nil
	default:
		return nil, nil
	}
}
