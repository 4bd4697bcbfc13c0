package driven

import (
	"context"
	"encoding/json"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// ExtractionRequest carries the evidence and instruction for one
// structured-output model call.
type ExtractionRequest struct {
	// Field is the extraction field being requested.
	Field domain.ExtractionField

	// Prompt is the field-specific instruction template content.
	Prompt string

	// Units are the selected evidence units, in ascending index order.
	// Their pages become the result's SourcePages verbatim.
	Units []domain.Unit

	// Images holds rendered page images (PNG bytes) parallel to the PDF
	// units that required them. Empty for text-only extraction.
	Images [][]byte

	// SourceType is the format of the evidence document.
	SourceType domain.SourceType
}

// Extractor invokes an external structured-output model over the
// selected evidence and returns raw JSON for the requested field.
//
// Implementations must not perform arithmetic or normalise values; the
// instruction templates restate this rule to the model, and the engine
// records whatever validates against the external schema.
//
// Implementations may include:
//   - Gemini (vision + text)
//   - OpenAI-compatible chat completion APIs (text only)
type Extractor interface {
	// Extract performs the model call and returns the field payload.
	// Markdown fencing around the JSON is stripped; the payload is
	// otherwise returned untouched for schema validation by the caller.
	Extract(ctx context.Context, req ExtractionRequest) (json.RawMessage, error)

	// ModelName returns the extraction model identifier for provenance.
	ModelName() string

	// SupportsImages reports whether the backend accepts image evidence.
	SupportsImages() bool
}
