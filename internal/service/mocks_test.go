package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/llm"
	"github.com/pagemill/pagemill/internal/pagination"
	"github.com/pagemill/pagemill/internal/pdf"
)

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetBySHA256(ctx context.Context, sha256 string) (*domain.Document, error) {
	args := m.Called(ctx, sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
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

// MockIndexJobRepository is a mock implementation of IndexJobRepositoryInterface
type MockIndexJobRepository struct {
	mock.Mock
}

func (m *MockIndexJobRepository) Create(ctx context.Context, job *domain.IndexJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockQueryLogRepository is a mock implementation of QueryLogRepositoryInterface
type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) Create(ctx context.Context, entry *domain.QueryLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockSearcher is a mock implementation of ChunkSearcherInterface
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*domain.ScoredChunk, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScoredChunk), args.Error(1)
}

// MockExtractor is a mock implementation of ExtractorInterface
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractFile(path string) (*pdf.Result, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdf.Result), args.Error(1)
}

func (m *MockExtractor) ListDirectory(dir string) ([]string, error) {
	args := m.Called(dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockLLMClient is a mock implementation of llm.Client
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockArchiveStore is a mock implementation of ArchiveStore
type MockArchiveStore struct {
	mock.Mock
}

func (m *MockArchiveStore) ArchiveFile(ctx context.Context, key, path string) error {
	args := m.Called(ctx, key, path)
	return args.Error(0)
}

// MockUUIDGenerator returns a fixed sequence of IDs
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// fakeTxRunner runs the callback against the given repositories without a
// real transaction.
type fakeTxRunner struct {
	docs   DocumentRepositoryInterface
	chunks ChunkRepositoryInterface
	jobs   IndexJobRepositoryInterface
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(r)
}

func (r *fakeTxRunner) Documents() DocumentRepositoryInterface { return r.docs }
func (r *fakeTxRunner) Chunks() ChunkRepositoryInterface       { return r.chunks }
func (r *fakeTxRunner) IndexJobs() IndexJobRepositoryInterface { return r.jobs }
