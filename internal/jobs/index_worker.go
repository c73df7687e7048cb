package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/llm"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	claimBatchSize = 100
)

// IndexJobRepository defines the interface for index job persistence
type IndexJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IndexJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// ChunkRepository defines the chunk persistence the worker needs
type ChunkRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	CountMissingEmbeddings(ctx context.Context, documentID string) (int, error)
}

// DocumentRepository defines the document persistence the worker needs
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, d *domain.Document) error
}

// IndexWorker retries embeddings that failed during ingestion. Once the last
// missing embedding of a document lands, the document is marked ready.
type IndexWorker struct {
	jobs     IndexJobRepository
	chunks   ChunkRepository
	docs     DocumentRepository
	embedder llm.EmbeddingClient
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(jobs IndexJobRepository, chunks ChunkRepository, docs DocumentRepository, embedder llm.EmbeddingClient) *IndexWorker {
	return &IndexWorker{
		jobs:     jobs,
		chunks:   chunks,
		docs:     docs,
		embedder: embedder,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobs.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending index jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IndexWorker) processJob(ctx context.Context, job *domain.IndexJob) error {
	chunk, err := w.chunks.GetByID(ctx, job.ChunkID)
	if err != nil {
		if errors.Is(err, domain.ErrChunkNotFound) {
			// The document was re-ingested or deleted, the job is obsolete.
			return w.jobs.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, "chunk no longer exists")
		}
		return w.handleJobFailure(ctx, job, err)
	}

	embedding, err := w.embedder.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.chunks.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.refreshDocumentStatus(ctx, chunk.DocumentID)

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *IndexWorker) handleJobFailure(ctx context.Context, job *domain.IndexJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobs.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IndexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IndexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

// refreshDocumentStatus marks the document ready when no chunk is missing an
// embedding anymore. Best effort, the next job for the document retries it.
func (w *IndexWorker) refreshDocumentStatus(ctx context.Context, documentID string) {
	missing, err := w.chunks.CountMissingEmbeddings(ctx, documentID)
	if err != nil {
		log.Printf("Error counting missing embeddings for document %s: %v", documentID, err)
		return
	}
	if missing > 0 {
		return
	}

	document, err := w.docs.GetByID(ctx, documentID)
	if err != nil {
		log.Printf("Error loading document %s: %v", documentID, err)
		return
	}
	if document.Status == domain.DocumentStatusReady {
		return
	}

	document.Status = domain.DocumentStatusReady
	if err := w.docs.Update(ctx, document); err != nil {
		log.Printf("Error marking document %s ready: %v", documentID, err)
	}
}
