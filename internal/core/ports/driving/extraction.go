package driving

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// ExtractionRequest selects what an extraction run covers.
type ExtractionRequest struct {
	// SourceLink restricts the run to one document (filename or URL).
	// Empty means every document linked to the issue.
	SourceLink string

	// IssueID identifies the issue. May be empty when SourceLink is
	// given; the catalog resolves it.
	IssueID string

	// Fields restricts the run to specific fields. Empty means every
	// defined field.
	Fields []domain.ExtractionField

	// OutputDir is where the issue extraction file is written.
	OutputDir string
}

// ExtractionService orchestrates the retrieval-and-merge pipeline:
// route fields, build or reuse per-document indexes, retrieve evidence,
// call the extractor, stage results and merge them into one issue-level
// record.
//
// Documents are processed sequentially, one at a time. The run is
// abortable between document boundaries via ctx; an aborted run still
// returns the partial record it produced, marked incomplete.
type ExtractionService interface {
	// Run executes an extraction run and returns the merged record.
	// Field-level failures are isolated and reported on the record;
	// only setup errors (unknown issue, no documents) fail the run.
	Run(ctx context.Context, req ExtractionRequest) (*domain.IssueRecord, error)
}

// IndexService manages per-document semantic indexes.
type IndexService interface {
	// Build chunks, embeds and indexes the document, replacing any
	// prior index for its ID. Returns the number of units indexed.
	Build(ctx context.Context, doc domain.Document, content []byte) (int, error)

	// Query embeds the query text and returns ranked unit hits.
	Query(ctx context.Context, documentID, query string, topK int) ([]domain.UnitHit, error)

	// Units returns the indexed unit metadata in ascending index order.
	Units(ctx context.Context, documentID string) ([]domain.Unit, error)

	// Clear removes the persisted index. Strict mode makes clearing a
	// nonexistent index an error instead of a no-op.
	Clear(ctx context.Context, documentID string, strict bool) error

	// Exists reports whether an index is present.
	Exists(ctx context.Context, documentID string) (bool, error)
}
