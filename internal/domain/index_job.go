package domain

import (
	"fmt"
	"time"
)

// IndexJobStatus represents the status of a chunk embedding retry job
type IndexJobStatus string

const (
	IndexJobStatusPending    IndexJobStatus = "pending"
	IndexJobStatusProcessing IndexJobStatus = "processing"
	IndexJobStatusCompleted  IndexJobStatus = "completed"
	IndexJobStatusFailed     IndexJobStatus = "failed"
)

// IndexJob represents a deferred embedding for a chunk whose provider call failed
// during ingestion. Jobs are picked up by the background index worker.
type IndexJob struct {
	ID          string
	ChunkID     string
	Status      IndexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateIndexJob validates an IndexJob instance
func ValidateIndexJob(j *IndexJob) error {
	if j == nil {
		return fmt.Errorf("index job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("%w: index job ID", ErrMissingRequiredField)
	}

	if j.ChunkID == "" {
		return fmt.Errorf("%w: index job ChunkID", ErrMissingRequiredField)
	}

	if !isValidIndexJobStatus(j.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidIndexJobState, j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("index job Retries cannot be negative")
	}

	return nil
}

func isValidIndexJobStatus(s IndexJobStatus) bool {
	switch s {
	case IndexJobStatusPending, IndexJobStatusProcessing,
		IndexJobStatusCompleted, IndexJobStatusFailed:
		return true
	}
	return false
}
