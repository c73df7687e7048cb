package service

import (
	"context"
	"time"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/pagination"
	"github.com/pagemill/pagemill/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetBySHA256(ctx context.Context, sha256 string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Update(ctx context.Context, d *domain.Document) error
	Delete(ctx context.Context, id string) error
}

// DocumentPageResult is one page of documents plus the cursor for the next.
type DocumentPageResult = pagination.PageResult[*domain.Document]

// URLSigner produces time-limited download links for archived documents.
type URLSigner interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentService handles read access to ingested documents.
type DocumentService struct {
	docRepo DocumentRepositoryInterface
	signer  URLSigner
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(docRepo DocumentRepositoryInterface, signer URLSigner) *DocumentService {
	return &DocumentService{docRepo: docRepo, signer: signer}
}

type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.docRepo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   result.Items,
		Cursor:  result.Cursor,
		HasMore: result.HasMore,
	}, nil
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetByID", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.docRepo.GetByID(ctx, id)
}

// DownloadURL returns a time-limited link to the archived source PDF.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.DownloadURL", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "download",
	})
	defer span.End()

	document, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.signer == nil || document.StorageKey == "" {
		return "", domain.ErrNoStorage
	}

	return s.signer.GenerateDownloadURL(ctx, document.StorageKey, 15*time.Minute)
}
