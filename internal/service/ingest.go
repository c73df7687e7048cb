package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/llm"
	"github.com/pagemill/pagemill/internal/pdf"
	"github.com/pagemill/pagemill/internal/telemetry"
)

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// IndexJobRepositoryInterface defines the repository interface for index job persistence
type IndexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IndexJob) error
}

// ExtractorInterface defines the PDF text extraction interface
type ExtractorInterface interface {
	ExtractFile(path string) (*pdf.Result, error)
	ListDirectory(dir string) ([]string, error)
}

// ArchiveStore uploads ingested source files to object storage.
type ArchiveStore interface {
	ArchiveFile(ctx context.Context, key, path string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestService turns PDF files into embedded chunks ready for retrieval.
type IngestService struct {
	docRepo   DocumentRepositoryInterface
	txRunner  TxRunner
	extractor ExtractorInterface
	embedder  llm.EmbeddingClient
	archive   ArchiveStore
	uuidGen   UUIDGenerator

	chunkCfg ChunkConfig
	workers  int
}

// IngestOption customizes an IngestService.
type IngestOption func(*IngestService)

// WithArchiveStore enables source file archival after ingestion.
func WithArchiveStore(store ArchiveStore) IngestOption {
	return func(s *IngestService) { s.archive = store }
}

// WithChunkConfig overrides the default chunking parameters.
func WithChunkConfig(cfg ChunkConfig) IngestOption {
	return func(s *IngestService) { s.chunkCfg = cfg }
}

// WithEmbedWorkers bounds the number of concurrent embedding calls.
func WithEmbedWorkers(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithUUIDGenerator overrides UUID generation (for testing).
func WithUUIDGenerator(gen UUIDGenerator) IngestOption {
	return func(s *IngestService) { s.uuidGen = gen }
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	docRepo DocumentRepositoryInterface,
	txRunner TxRunner,
	extractor ExtractorInterface,
	embedder llm.EmbeddingClient,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docRepo:   docRepo,
		txRunner:  txRunner,
		extractor: extractor,
		embedder:  embedder,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkCfg:  DefaultChunkConfig(),
		workers:   4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestResult describes the outcome of ingesting a single file.
type IngestResult struct {
	Document          *domain.Document
	ChunkCount        int
	Pages             int
	PendingEmbeddings int
	Reused            bool
}

// IngestFile extracts, chunks and embeds a single PDF. Chunks whose embedding
// call failed are stored without a vector and queued as index jobs so the
// background worker can retry them.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestFile", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	extracted, err := s.extractor.ExtractFile(path)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// Identical content was ingested before, skip reprocessing.
	existing, err := s.docRepo.GetBySHA256(ctx, extracted.SHA256)
	if err == nil {
		return &IngestResult{
			Document:   existing,
			ChunkCount: existing.ChunkCount,
			Pages:      existing.Pages,
			Reused:     true,
		}, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		span.SetError(err)
		return nil, err
	}

	now := time.Now().UTC()
	documentID := s.uuidGen.NewString()

	chunks := s.buildChunks(documentID, extracted, now)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	failed := s.embedChunks(ctx, chunks)

	status := domain.DocumentStatusReady
	if len(failed) > 0 {
		status = domain.DocumentStatusProcessing
	}

	document := &domain.Document{
		ID:         documentID,
		SourcePath: extracted.SourcePath,
		Filename:   extracted.Filename,
		SHA256:     extracted.SHA256,
		Pages:      len(extracted.Pages),
		ChunkCount: len(chunks),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.ValidateDocument(document); err != nil {
		return nil, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, document); err != nil {
			return err
		}
		if err := repos.Chunks().ReplaceChunks(ctx, documentID, chunks); err != nil {
			return err
		}
		for _, chunkID := range failed {
			job := &domain.IndexJob{
				ID:        s.uuidGen.NewString(),
				ChunkID:   chunkID,
				Status:    domain.IndexJobStatusPending,
				CreatedAt: now,
			}
			if err := domain.ValidateIndexJob(job); err != nil {
				return err
			}
			if err := repos.IndexJobs().Create(ctx, job); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.archiveDocument(ctx, document, path)

	return &IngestResult{
		Document:          document,
		ChunkCount:        len(chunks),
		Pages:             len(extracted.Pages),
		PendingEmbeddings: len(failed),
	}, nil
}

// DirectoryResult summarizes a directory ingestion run.
type DirectoryResult struct {
	Ingested []*IngestResult
	Failed   map[string]string
}

// IngestDirectory ingests every PDF in a directory. Individual file failures
// are collected rather than aborting the run.
func (s *IngestService) IngestDirectory(ctx context.Context, dir string) (*DirectoryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDirectory", telemetry.SpanAttributes{
		Operation: "ingest_directory",
	})
	defer span.End()

	paths, err := s.extractor.ListDirectory(dir)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := &DirectoryResult{Failed: make(map[string]string)}
	for _, path := range paths {
		fileResult, err := s.IngestFile(ctx, path)
		if err != nil {
			log.Printf("ingest: %s failed: %v", path, err)
			result.Failed[path] = err.Error()
			continue
		}
		result.Ingested = append(result.Ingested, fileResult)
	}

	return result, nil
}

func (s *IngestService) buildChunks(documentID string, extracted *pdf.Result, now time.Time) []domain.Chunk {
	var chunks []domain.Chunk
	index := 0
	for _, page := range extracted.Pages {
		for _, content := range chunkText(page.Text, s.chunkCfg) {
			chunks = append(chunks, domain.Chunk{
				ID:         s.uuidGen.NewString(),
				DocumentID: documentID,
				SourcePath: extracted.SourcePath,
				Page:       page.Number,
				ChunkIndex: index,
				Content:    content,
				CreatedAt:  now,
			})
			index++
		}
	}
	return chunks
}

// embedChunks fills in embeddings in place and returns the IDs of chunks
// whose provider call failed.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) []string {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	failures := make([]bool, len(chunks))
	for i := range chunks {
		i := i
		g.Go(func() error {
			embedding, err := s.embedder.GenerateEmbedding(gctx, chunks[i].Content)
			if err != nil {
				log.Printf("ingest: embedding chunk %s failed: %v", chunks[i].ID, err)
				failures[i] = true
				return nil
			}
			chunks[i].Embedding = embedding
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for i, didFail := range failures {
		if didFail {
			failed = append(failed, chunks[i].ID)
		}
	}
	return failed
}

func (s *IngestService) archiveDocument(ctx context.Context, document *domain.Document, path string) {
	if s.archive == nil {
		return
	}

	key := "documents/" + document.ID + "/" + document.Filename
	if err := s.archive.ArchiveFile(ctx, key, path); err != nil {
		log.Printf("ingest: archiving %s failed: %v", path, err)
		return
	}

	document.StorageKey = key
	if err := s.docRepo.Update(ctx, document); err != nil {
		log.Printf("ingest: recording storage key for %s failed: %v", document.ID, err)
	}
}
