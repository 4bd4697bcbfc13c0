package domain

// ExtractionField names a category of structured data to extract.
type ExtractionField string

// Known extraction fields. The routing table is data-driven, so new
// fields are additive: a definition plus a prompt file, no new code.
const (
	FieldInvestors       ExtractionField = "investors"
	FieldImportantDates  ExtractionField = "important_dates"
	FieldOfferingTerms   ExtractionField = "offering_terms"
	FieldOfferingOutcome ExtractionField = "offering_outcome"
	FieldGeneralInfo     ExtractionField = "general_info"
)

// String returns the string representation.
func (f ExtractionField) String() string {
	return string(f)
}

// PageStrategy selects how retrieved hits become the page set sent to
// the extractor.
type PageStrategy string

const (
	// StrategyTopHit sends only the page of the single best hit.
	// Suited to fields stated in one place (ISINs, a single date table).
	StrategyTopHit PageStrategy = "top_hit"

	// StrategyConsecutive expands around the best hit to capture tables
	// that span page boundaries. This is the default.
	StrategyConsecutive PageStrategy = "consecutive"
)

// FieldDefinition is one row of the externally configured routing table.
// It declares where a field applies and how to retrieve evidence for it.
type FieldDefinition struct {
	// Field is the extraction field this definition describes.
	Field ExtractionField

	// Description is a human-readable summary shown by `finlab fields`.
	Description string

	// DataPoints lists the atomic values the field's schema carries.
	DataPoints []string

	// SourceTypes are the formats the field applies to, in preference
	// order. Extraction tries earlier types first and stops once one
	// yields data.
	SourceTypes []SourceType

	// IssueTypes restricts applicability to certain issue types.
	// Empty means the field applies to every issue type.
	IssueTypes []string

	// Queries are the seed semantic search strings. When several are
	// configured, all are issued and the hits unioned.
	Queries []string

	// PageStrategy selects the page expansion behaviour for PDF sources.
	PageStrategy PageStrategy

	// RequiresImage is true when the extractor needs rendered page
	// images (tables that do not survive text extraction).
	RequiresImage bool

	// TopK is the number of hits to retrieve per query. Zero means the
	// engine default.
	TopK int

	// AuthoritativeSource, when set, makes results from that source type
	// win merge conflicts regardless of document processing order.
	AuthoritativeSource *SourceType

	// ListField marks union-merge semantics (entries deduplicated by an
	// exact identity key) instead of last-write-wins.
	ListField bool
}

// AppliesTo reports whether the field is relevant for the given
// document format and issue type. Skipping inapplicable fields is a
// correctness requirement: forcing extraction where a field cannot
// occur produces spurious false positives.
func (d FieldDefinition) AppliesTo(sourceType SourceType, issueType string) bool {
	typeOK := false
	for _, st := range d.SourceTypes {
		if st == sourceType {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	if len(d.IssueTypes) == 0 {
		return true
	}
	for _, it := range d.IssueTypes {
		if it == issueType {
			return true
		}
	}
	return false
}

// RoutePlan is the routing decision for one (field, document) pairing.
type RoutePlan struct {
	// Applicable is false when the field must be skipped entirely.
	Applicable bool

	// Queries are the search strings to issue against the index.
	Queries []string

	// RequiresImage is true when page images must accompany the text.
	RequiresImage bool

	// TopK is the per-query hit count.
	TopK int

	// Strategy is the page selection strategy.
	Strategy PageStrategy
}
