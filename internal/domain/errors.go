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
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Not found errors
var (
	ErrJobNotFound        = NewDomainError(ErrCodeNotFound, "crawl job not found")
	ErrContentNotFound    = NewDomainError(ErrCodeNotFound, "scraped content not found")
	ErrRegulationNotFound = NewDomainError(ErrCodeNotFound, "regulation not found")
	ErrChunkNotFound      = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// RobotsDisallowedError is a policy-level refusal. It is not retried
// automatically: resubmitting the same URL fails identically until the
// site's crawl policy changes.
type RobotsDisallowedError struct {
	URL     string
	Pattern string
}

func (e *RobotsDisallowedError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("robots policy disallows %s (matched %q)", e.URL, e.Pattern)
	}
	return fmt.Sprintf("robots policy disallows %s", e.URL)
}

// FetchError is a transient fetch failure, eligible for scheduler retry.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch of %s failed with status %d", e.URL, e.StatusCode)
}

// ExtractionError is a structured-extraction failure. Non-fatal to a
// pipeline run; it is recorded and the run continues to embedding.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("structured extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError is scoped to a single chunk and non-fatal to the run.
type EmbeddingError struct {
	ChunkIndex int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// PersistenceError wraps a store write failure. Fatal only for the
// raw-content write; per-chunk writes are non-fatal.
type PersistenceError struct {
	Entity string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
