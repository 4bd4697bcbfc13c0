// Package pdf chunks PDF documents into one unit per page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker produces one unit per PDF page. Pages whose text cannot be
// extracted yield an empty-text unit so the index sequence stays
// gapless; their content is still reachable through the page image.
type Chunker struct{}

// New creates a PDF chunker.
func New() *Chunker {
	return &Chunker{}
}

// Supports returns the source type this chunker handles.
func (c *Chunker) Supports() domain.SourceType {
	return domain.SourceTypePDF
}

// Chunk splits the PDF into page units, each carrying a renderable
// page reference.
func (c *Chunker) Chunk(ctx context.Context, doc domain.Document, content []byte) ([]domain.Unit, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", doc.ID, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%s: %w", doc.ID, domain.ErrEmptyDocument)
	}

	units := make([]domain.Unit, 0, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := pageText(reader, pageNum)
		units = append(units, domain.Unit{
			Index: pageNum - 1,
			Text:  text,
			Image: &domain.PageImageRef{
				DocumentPath: doc.SourceURL,
				Page:         pageNum,
			},
		})
	}
	return units, nil
}

// pageText extracts the plain text of one page. Extraction failures
// produce an empty string; malformed pages are common in scanned
// prospectuses and must not abort indexing of the rest.
func pageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("PDF page %d text extraction panicked: %v", pageNum, r)
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	extracted, err := page.GetPlainText(nil)
	if err != nil {
		logger.Debug("PDF page %d text extraction failed: %v", pageNum, err)
		return ""
	}
	return strings.TrimSpace(extracted)
}
