package domain

import "time"

// Chunk represents a bounded slice of document text stored with its embedding.
type Chunk struct {
	ID         string
	DocumentID string
	SourcePath string
	Page       int
	ChunkIndex int
	Content    string
	Embedding  []float32 // Nil until the embedding provider has processed the chunk
	CreatedAt  time.Time
}
