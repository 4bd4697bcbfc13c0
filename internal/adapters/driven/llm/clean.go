// Package llm holds helpers shared by the extractor adapters.
package llm

import (
	"fmt"
	"strings"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// CleanJSON strips markdown code fencing that models wrap around JSON
// output. The payload itself is returned untouched.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// BuildEvidence renders the selected units as the model's evidence
// text. PDF units are labelled with their page number so the model can
// tell pages apart; HTML blocks are joined in document order.
func BuildEvidence(units []domain.Unit, sourceType domain.SourceType) string {
	var b strings.Builder
	for i, u := range units {
		if sourceType == domain.SourceTypePDF {
			fmt.Fprintf(&b, "--- Page %d ---\n", u.Page())
		} else if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
