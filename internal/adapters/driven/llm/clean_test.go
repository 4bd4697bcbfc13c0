package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"preserves string content", `{"amount":"14,5 MSEK"}`, `{"amount":"14,5 MSEK"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.input))
		})
	}
}

func TestBuildEvidence_PDFPagesLabelled(t *testing.T) {
	units := []domain.Unit{
		{Index: 2, Text: "page three text"},
		{Index: 3, Text: "page four text"},
	}

	evidence := BuildEvidence(units, domain.SourceTypePDF)

	assert.Contains(t, evidence, "--- Page 3 ---")
	assert.Contains(t, evidence, "--- Page 4 ---")
	assert.Contains(t, evidence, "page three text")
}

func TestBuildEvidence_HTMLJoined(t *testing.T) {
	units := []domain.Unit{
		{Index: 0, Text: "first block"},
		{Index: 1, Text: "second block"},
	}

	evidence := BuildEvidence(units, domain.SourceTypeHTML)

	assert.NotContains(t, evidence, "--- Page")
	assert.Contains(t, evidence, "first block")
	assert.Contains(t, evidence, "second block")
}
