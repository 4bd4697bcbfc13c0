// Package html chunks HTML documents into block-level text units.
package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// DefaultBlockBudget is the target character count per unit. Press
// release paragraphs are short, so consecutive small blocks are
// coalesced up to this budget to keep the unit count reasonable.
const DefaultBlockBudget = 1000

// blockSelector matches the block-level elements that carry body text.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre"

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker segments HTML into ordered text block units. Script, style
// and head content is dropped. HTML units carry no image reference.
type Chunker struct {
	blockBudget int
}

// Option configures the HTML chunker.
type Option func(*Chunker)

// WithBlockBudget sets the target character count per unit.
func WithBlockBudget(budget int) Option {
	return func(c *Chunker) {
		if budget > 0 {
			c.blockBudget = budget
		}
	}
}

// New creates an HTML chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{blockBudget: DefaultBlockBudget}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supports returns the source type this chunker handles.
func (c *Chunker) Supports() domain.SourceType {
	return domain.SourceTypeHTML
}

// Chunk segments the document into block units.
func (c *Chunker) Chunk(_ context.Context, doc domain.Document, content []byte) ([]domain.Unit, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", doc.ID, err)
	}

	parsed.Find("script, style, noscript, head, iframe").Remove()

	var blocks []string
	parsed.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		// Nested blocks (a p inside an li) would duplicate text;
		// only the innermost block for each text run is kept.
		if sel.Find(blockSelector).Length() > 0 {
			return
		}
		text := normaliseSpace(blockText(sel))
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		// Plain-text bodies without block markup still index as one unit.
		if text := normaliseSpace(parsed.Text()); text != "" {
			blocks = []string{text}
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%s: %w", doc.ID, domain.ErrEmptyDocument)
	}

	var units []domain.Unit
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		units = append(units, domain.Unit{Index: len(units), Text: buf.String()})
		buf.Reset()
	}

	for _, block := range blocks {
		if buf.Len() > 0 && buf.Len()+len(block)+1 > c.blockBudget {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(block)
	}
	flush()

	return units, nil
}

// blockText extracts the text of one block. Table rows join their
// cells with a space; Text alone would run column values together.
func blockText(sel *goquery.Selection) string {
	if goquery.NodeName(sel) != "tr" {
		return sel.Text()
	}
	var cells []string
	sel.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		if text := normaliseSpace(cell.Text()); text != "" {
			cells = append(cells, text)
		}
	})
	return strings.Join(cells, " ")
}

// normaliseSpace collapses runs of whitespace into single spaces.
func normaliseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
