package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion state of a document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an ingested PDF document
type Document struct {
	ID         string
	SourcePath string
	Filename   string
	SHA256     string
	Pages      int
	ChunkCount int
	Status     DocumentStatus
	StorageKey string // Set when the source PDF is archived to object storage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.SourcePath == "" {
		return fmt.Errorf("document SourcePath is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.Pages < 0 {
		return fmt.Errorf("document Pages cannot be negative")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
