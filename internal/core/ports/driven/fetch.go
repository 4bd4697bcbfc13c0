package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// ContentFetcher retrieves raw document bytes for chunking and
// indexing. PDFs come from a local document directory, HTML sources
// from their URL.
type ContentFetcher interface {
	// Fetch returns the raw content of the document.
	Fetch(ctx context.Context, doc domain.Document) ([]byte, error)

	// LocalPath returns the on-disk path of a PDF source, used for
	// page rendering. Returns domain.ErrUnsupportedFormat for sources
	// that have no local file.
	LocalPath(doc domain.Document) (string, error)
}
