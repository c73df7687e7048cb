package domain

import "time"

// QueryLog records an answered question for later inspection.
type QueryLog struct {
	ID         string
	Query      string
	Provider   string
	Model      string
	TopK       int
	ChunkIDs   []string
	Answer     string
	DurationMs int64
	CreatedAt  time.Time
}
