package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pagemill/pagemill/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIndexJobRepository is a mock implementation of IndexJobRepository
type MockIndexJobRepository struct {
	mock.Mock
}

func (m *MockIndexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IndexJob), args.Error(1)
}

func (m *MockIndexJobRepository) UpdateStatus(ctx context.Context, id string, status domain.IndexJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockIndexJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of ChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockChunkRepository) CountMissingEmbeddings(ctx context.Context, documentID string) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of llm.EmbeddingClient
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestNewWorker_ClampsPollInterval(t *testing.T) {
	worker := NewWorker(new(MockJobProcessor), time.Millisecond)
	assert.Equal(t, minPollInterval, worker.pollInterval)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func newIndexWorkerFixture() (*MockIndexJobRepository, *MockChunkRepository, *MockDocumentRepository, *MockEmbedder, *IndexWorker) {
	jobRepo := new(MockIndexJobRepository)
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	worker := NewIndexWorker(jobRepo, chunkRepo, docRepo, embedder)
	return jobRepo, chunkRepo, docRepo, embedder, worker
}

func TestIndexWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	jobRepo, chunkRepo, _, embedder, worker := newIndexWorkerFixture()

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{}, nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	jobRepo.AssertExpectations(t)
	chunkRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestIndexWorker_ProcessJobs_Success(t *testing.T) {
	jobRepo, chunkRepo, docRepo, embedder, worker := newIndexWorkerFixture()

	job := &domain.IndexJob{ID: "job-1", ChunkID: "chunk-1", Status: domain.IndexJobStatusProcessing}
	chunk := &domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", Content: "chunk text"}
	document := &domain.Document{ID: "doc-1", Status: domain.DocumentStatusProcessing}

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{job}, nil)
	chunkRepo.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return([]float32{0.1, 0.2}, nil)
	chunkRepo.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{0.1, 0.2}).Return(nil)
	jobRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IndexJobStatusCompleted, "").Return(nil)
	chunkRepo.On("CountMissingEmbeddings", mock.Anything, "doc-1").Return(0, nil)
	docRepo.On("GetByID", mock.Anything, "doc-1").Return(document, nil)
	docRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusReady
	})).Return(nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	jobRepo.AssertExpectations(t)
	chunkRepo.AssertExpectations(t)
	docRepo.AssertExpectations(t)
}

func TestIndexWorker_ProcessJobs_DocumentStaysProcessing(t *testing.T) {
	jobRepo, chunkRepo, docRepo, embedder, worker := newIndexWorkerFixture()

	job := &domain.IndexJob{ID: "job-1", ChunkID: "chunk-1"}
	chunk := &domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", Content: "chunk text"}

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{job}, nil)
	chunkRepo.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return([]float32{0.1}, nil)
	chunkRepo.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{0.1}).Return(nil)
	jobRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IndexJobStatusCompleted, "").Return(nil)
	chunkRepo.On("CountMissingEmbeddings", mock.Anything, "doc-1").Return(2, nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	docRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestIndexWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	jobRepo, chunkRepo, _, embedder, worker := newIndexWorkerFixture()

	job := &domain.IndexJob{ID: "job-1", ChunkID: "chunk-1", Retries: 0}
	chunk := &domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", Content: "chunk text"}

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{job}, nil)
	chunkRepo.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return(nil, errors.New("embedding failed"))
	jobRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	jobRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IndexJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	jobRepo.AssertExpectations(t)
}

func TestIndexWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	jobRepo, chunkRepo, _, embedder, worker := newIndexWorkerFixture()

	job := &domain.IndexJob{ID: "job-1", ChunkID: "chunk-1", Retries: 2}
	chunk := &domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", Content: "chunk text"}

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{job}, nil)
	chunkRepo.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return(nil, errors.New("embedding failed"))
	jobRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	jobRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IndexJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	jobRepo.AssertExpectations(t)
}

func TestIndexWorker_ProcessJobs_ObsoleteChunk(t *testing.T) {
	jobRepo, chunkRepo, _, embedder, worker := newIndexWorkerFixture()

	job := &domain.IndexJob{ID: "job-1", ChunkID: "chunk-gone"}

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.IndexJob{job}, nil)
	chunkRepo.On("GetByID", mock.Anything, "chunk-gone").Return(nil, domain.ErrChunkNotFound)
	jobRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IndexJobStatusCompleted, "chunk no longer exists").Return(nil)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	jobRepo.AssertExpectations(t)
}

func TestIndexWorker_ProcessJobs_RepositoryError(t *testing.T) {
	jobRepo, _, _, _, worker := newIndexWorkerFixture()

	jobRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(nil, errors.New("database error"))

	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending jobs")
	jobRepo.AssertExpectations(t)
}
