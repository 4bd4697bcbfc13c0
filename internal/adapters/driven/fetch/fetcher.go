// Package fetch retrieves raw document content: PDFs from a local
// document directory, HTML sources over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.ContentFetcher = (*Fetcher)(nil)

const (
	// DefaultPDFDir is where source PDFs are expected when no
	// directory is configured.
	DefaultPDFDir = "pdfs"

	// DefaultTimeout bounds one HTML fetch.
	DefaultTimeout = 30 * time.Second

	// maxHTMLBytes caps response bodies; disclosure pages are small
	// and an unbounded read is a liability against misconfigured URLs.
	maxHTMLBytes = 10 << 20
)

// Fetcher is a file-and-HTTP implementation of driven.ContentFetcher.
type Fetcher struct {
	pdfDir string
	client *http.Client
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for HTML sources.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a fetcher reading PDFs from pdfDir.
// If pdfDir is empty, DefaultPDFDir is used.
func NewFetcher(pdfDir string, opts ...Option) *Fetcher {
	if pdfDir == "" {
		pdfDir = DefaultPDFDir
	}
	f := &Fetcher{
		pdfDir: pdfDir,
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the raw content of the document.
func (f *Fetcher) Fetch(ctx context.Context, doc domain.Document) ([]byte, error) {
	switch doc.SourceType {
	case domain.SourceTypePDF:
		localPath, err := f.LocalPath(doc)
		if err != nil {
			return nil, err
		}
		content, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
		return content, nil

	case domain.SourceTypeHTML:
		return f.fetchHTML(ctx, doc.SourceURL)

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, doc.SourceType)
	}
}

// LocalPath returns the on-disk path of a PDF source.
func (f *Fetcher) LocalPath(doc domain.Document) (string, error) {
	if doc.SourceType != domain.SourceTypePDF {
		return "", fmt.Errorf("%w: %s source has no local file", domain.ErrUnsupportedFormat, doc.SourceType)
	}
	return filepath.Join(f.pdfDir, path.Base(doc.SourceURL)), nil
}

func (f *Fetcher) fetchHTML(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewTransientError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, domain.NewTransientError("fetch", err)
		}
		return nil, domain.NewFatalError("fetch", err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, domain.NewTransientError("fetch", err)
	}
	return body, nil
}
