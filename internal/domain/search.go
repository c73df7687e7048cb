package domain

// ScoredChunk is a chunk returned by similarity search together with its
// relevance score. Scores are normalized to (0, 1] where 1 is an exact match.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}
