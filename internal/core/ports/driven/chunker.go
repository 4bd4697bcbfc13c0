package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// Chunker splits raw document content into an ordered, 0-indexed
// sequence of units covering the entire document with no gaps or
// overlaps in unit index.
//
// Implementations may include:
//   - PDF: one unit per page, each carrying a renderable image reference
//   - HTML: structural text segmentation into block units
type Chunker interface {
	// Chunk produces the unit sequence for the document.
	// Returns domain.ErrEmptyDocument if zero units result.
	Chunk(ctx context.Context, doc domain.Document, content []byte) ([]domain.Unit, error)

	// Supports returns the source type this chunker handles.
	Supports() domain.SourceType
}

// ChunkerRegistry selects the chunker for a document's source type.
type ChunkerRegistry interface {
	// ForType returns the chunker for the given source type.
	// Returns domain.ErrUnsupportedFormat when no chunker is registered.
	ForType(sourceType domain.SourceType) (Chunker, error)
}
