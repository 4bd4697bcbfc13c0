package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// StagingStore persists AI-produced drafts pending human review.
// Rows are keyed by (source URL, extraction field): an upsert replaces
// the prior row's payload atomically, never duplicates it, and a failed
// write leaves the prior row intact.
type StagingStore interface {
	// Upsert writes the entry, replacing any existing row for the same
	// (SourceURL, Field) key in a single transaction.
	Upsert(ctx context.Context, entry domain.StagingEntry) error

	// Get retrieves the live row for the key.
	// Returns domain.ErrDocumentNotFound when no row exists.
	Get(ctx context.Context, sourceURL string, field domain.ExtractionField) (*domain.StagingEntry, error)

	// ListByIssue returns all live rows for an issue.
	ListByIssue(ctx context.Context, issueID string) ([]domain.StagingEntry, error)

	// Close releases the underlying connection.
	Close() error
}
