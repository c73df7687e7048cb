// Package llm selects and wires the embedding/completion provider.
package llm

import "context"

// EmbeddingClient generates vector embeddings for text.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CompletionRequest holds the input for a completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionClient generates text completions.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client combines embedding and completion generation for a single provider.
type Client interface {
	EmbeddingClient
	CompletionClient
}
