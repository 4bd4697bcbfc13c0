package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// SourceCatalog is the registry of source documents and their issue
// linkage, consumed read-mostly by the extraction pipeline.
type SourceCatalog interface {
	// FindByIssue returns all documents linked to the issue, PDFs
	// before HTML, each group in insertion order.
	FindByIssue(ctx context.Context, issueID string) ([]domain.Document, error)

	// FindByLink locates a single document by catalog ID, source URL or
	// full URL. Exact matches are tried first, then substring matches.
	// Returns domain.ErrDocumentNotFound when nothing matches.
	FindByLink(ctx context.Context, link string) (*domain.Document, error)

	// ResolveIssueID returns the issue ID associated with a source
	// link, using the same exact-then-substring matching as FindByLink.
	// Returns domain.ErrIssueNotFound when no association exists.
	ResolveIssueID(ctx context.Context, link string) (string, error)

	// Save inserts or updates a catalog entry.
	Save(ctx context.Context, doc domain.Document) error

	// List returns every catalog entry.
	List(ctx context.Context) ([]domain.Document, error)
}

// FieldTable provides the externally configured routing definitions.
// The table is data-driven: new fields are added by configuration, not
// by code changes.
type FieldTable interface {
	// Definition returns the routing definition for a field.
	// Returns domain.ErrFieldUnknown when the field has no definition.
	Definition(field domain.ExtractionField) (*domain.FieldDefinition, error)

	// Fields returns every defined field in table order.
	Fields() []domain.ExtractionField
}
