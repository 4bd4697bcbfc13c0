package chunkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samwindheim/finance-lab-project-v2/internal/chunkers/html"
	"github.com/Samwindheim/finance-lab-project-v2/internal/chunkers/pdf"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

func TestRegistry_ForType(t *testing.T) {
	registry := NewRegistry(pdf.New(), html.New())

	pdfChunker, err := registry.ForType(domain.SourceTypePDF)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypePDF, pdfChunker.Supports())

	htmlChunker, err := registry.ForType(domain.SourceTypeHTML)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypeHTML, htmlChunker.Supports())
}

func TestRegistry_UnsupportedType(t *testing.T) {
	registry := NewRegistry(pdf.New())

	_, err := registry.ForType(domain.SourceTypeHTML)

	require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
