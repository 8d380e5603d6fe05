// Package llm provides the reasoning-delegate clients used by extraction
// agents, plus the prompt templates and response parsing that turn delegate
// output into event records.
package llm

import "context"

// TextGenerator is the interface extraction agents use to consult a
// generative reasoning delegate. All extraction prompts use single-string
// completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator produces vector embeddings for event descriptions.
// The PostgreSQL store uses these for similarity search across saved
// timelines. Returns float32 slices sized to the provider's model.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
