package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// PageRenderer renders a PDF page to an image for vision extraction.
// This is an optional boundary: when unavailable, image-requiring
// fields degrade to text-only extraction.
type PageRenderer interface {
	// Render produces PNG bytes for the referenced page.
	Render(ctx context.Context, ref domain.PageImageRef) ([]byte, error)
}

// CommandRunner executes an external command and returns its combined
// output. Separated from PageRenderer implementations so they can be
// tested without the underlying binary installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
