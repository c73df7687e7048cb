package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrNotAPDF              = NewDomainError(ErrCodeValidation, "file is not a PDF")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is required")
	ErrInvalidIndexJobState = NewDomainError(ErrCodeValidation, "invalid index job status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrFileNotFound      = NewDomainError(ErrCodeNotFound, "file not found")
	ErrDirectoryNotFound = NewDomainError(ErrCodeNotFound, "directory not found")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound     = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Operation errors
var (
	ErrNoPDFsInDirectory = NewDomainError(ErrCodeInvalidOperation, "no PDF files found in directory")
	ErrEmptyDocument     = NewDomainError(ErrCodeInvalidOperation, "document contains no extractable text")
	ErrNoStorage         = NewDomainError(ErrCodeInvalidOperation, "document archive storage not configured")
)

// Provider errors
var (
	ErrProviderUnavailable = NewDomainError(ErrCodeUnavailable, "llm provider unavailable")
)
