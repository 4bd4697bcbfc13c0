package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrUnsupportedFormat indicates a source type other than PDF or HTML.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyDocument indicates chunking produced zero units. Indexing
	// an empty unit set is rejected, not silently accepted.
	ErrEmptyDocument = errors.New("empty document")

	// ErrIndexNotFound indicates no index exists for the document ID:
	// it was never built, or it was cleared.
	ErrIndexNotFound = errors.New("index not found")

	// ErrModelMismatch indicates a query embedded under a different
	// model version than the index was built with. Comparing vectors
	// across model versions yields silently-wrong rankings, so the
	// index refuses outright.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrIndexCorrupted indicates the vector store and unit metadata
	// disagree (cardinality or vector width). Detected on load.
	ErrIndexCorrupted = errors.New("index corrupted")

	// ErrSchemaValidation indicates extractor output that does not
	// conform to the externally owned schema. Recoverable: recorded as
	// a missing result for that (document, field) pair.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrDocumentNotFound indicates the source catalog has no entry for
	// the requested document or link.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrIssueNotFound indicates no issue could be resolved for the
	// given source link or issue ID.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrFieldUnknown indicates an extraction field with no definition
	// in the routing table.
	ErrFieldUnknown = errors.New("unknown extraction field")
)

// UpstreamError classifies a failure from an external API boundary
// (embedding, extraction, rendering).
type UpstreamError struct {
	// Op names the boundary operation, e.g. "embed" or "extract".
	Op string

	// Transient is true for rate limits, timeouts and server errors
	// worth retrying with backoff. Auth and request errors are fatal
	// and surfaced immediately.
	Transient bool

	// Err is the underlying cause.
	Err error
}

func (e *UpstreamError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s upstream error: %v", e.Op, kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a retryable upstream failure.
func NewTransientError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Transient: true, Err: err}
}

// NewFatalError wraps err as a non-retryable upstream failure.
func NewFatalError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable upstream failure.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transient
}
