// Package poppler renders PDF pages to PNG images using the pdftoppm
// binary from poppler-utils.
package poppler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

// DefaultDPI balances table legibility against upload size. Vision
// models resolve commitment tables reliably at 150dpi.
const DefaultDPI = 150

// Renderer renders PDF pages via pdftoppm. The command execution is
// behind driven.CommandRunner so tests run without poppler installed.
type Renderer struct {
	runner driven.CommandRunner
	dpi    int
}

// Option configures the renderer.
type Option func(*Renderer)

// WithDPI overrides the render resolution.
func WithDPI(dpi int) Option {
	return func(r *Renderer) {
		r.dpi = dpi
	}
}

// NewRenderer creates a pdftoppm-backed renderer.
// If runner is nil, commands run through os/exec.
func NewRenderer(runner driven.CommandRunner, opts ...Option) *Renderer {
	if runner == nil {
		runner = ExecRunner{}
	}
	r := &Renderer{runner: runner, dpi: DefaultDPI}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces PNG bytes for the referenced page.
func (r *Renderer) Render(ctx context.Context, ref domain.PageImageRef) ([]byte, error) {
	if ref.Page < 1 {
		return nil, fmt.Errorf("invalid page number %d", ref.Page)
	}
	if _, err := os.Stat(ref.DocumentPath); err != nil {
		return nil, fmt.Errorf("pdf not readable: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "finlab-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	page := strconv.Itoa(ref.Page)
	prefix := filepath.Join(tmpDir, "page")

	out, err := r.runner.Run(ctx, "pdftoppm",
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", page,
		"-l", page,
		"-singlefile",
		ref.DocumentPath,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d of %s: %w (output: %s)",
			ref.Page, ref.DocumentPath, err, string(out))
	}

	png, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("reading rendered page: %w", err)
	}
	return png, nil
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

var _ driven.CommandRunner = ExecRunner{}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
