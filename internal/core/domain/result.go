package domain

import (
	"encoding/json"
	"time"
)

// ExtractionResult is one field extracted from one document. A new run
// produces a new result that supersedes the prior one for the same
// (document, field) key; results are never mutated in place.
type ExtractionResult struct {
	// DocumentID identifies the source document.
	DocumentID string

	// SourceURL is the raw source location, used as the staging key.
	SourceURL string

	// IssueID is the issue the document belongs to.
	IssueID string

	// Field is the extracted category.
	Field ExtractionField

	// SourceType is the format the evidence came from.
	SourceType SourceType

	// Payload is the validated JSON produced by the extractor.
	Payload json.RawMessage

	// SourcePages are the 1-based page numbers supplied to the model as
	// evidence, recorded verbatim from what was sent. Provenance is
	// about what the model saw, not where the answer is textually found.
	SourcePages []int

	// Model names the extraction model that produced the payload.
	Model string

	// ExtractedAt is when the extraction completed.
	ExtractedAt time.Time
}

// FieldFailure records an isolated extraction failure. A failure on one
// (document, field) pair never aborts the rest of the run.
type FieldFailure struct {
	// DocumentID is the document the failure occurred on.
	DocumentID string

	// Field is the field that failed.
	Field ExtractionField

	// Reason is the human-readable cause.
	Reason string
}

// MergedField is the chosen result for one field at issue level.
type MergedField struct {
	// Payload is the merged JSON for the field.
	Payload json.RawMessage

	// ContributingDocs lists the documents whose results are represented.
	ContributingDocs []string

	// SourcePages maps contributing document ID to the evidence pages.
	SourcePages map[string][]int
}

// IssueRecord is the merge target: one canonical record per issue,
// rebuilt by re-running merge, never incrementally patched.
type IssueRecord struct {
	// IssueID identifies the financial event.
	IssueID string

	// Fields maps each extracted field to its merged result.
	Fields map[ExtractionField]MergedField

	// Documents lists every document processed for this record, in
	// processing order.
	Documents []string

	// Complete is false when any linked document was skipped (failure
	// or cancellation), making partial records distinguishable.
	Complete bool

	// Failures records every isolated (document, field) failure.
	Failures []FieldFailure
}

// StagingEntry is a persisted AI-produced draft pending human review,
// keyed by (SourceURL, Field) with upsert-replace semantics: at most
// one live row per key.
type StagingEntry struct {
	// SourceURL is the raw source location.
	SourceURL string

	// Field is the extraction field.
	Field ExtractionField

	// IssueID is the associated issue, when known.
	IssueID string

	// DocID is the catalog document ID, when known.
	DocID string

	// Payload is the validated extraction JSON.
	Payload json.RawMessage

	// Status is the review state; new writes always reset to "pending".
	Status string

	// UpdatedAt is when the row was last written.
	UpdatedAt time.Time
}

// StagingStatusPending marks a fresh extraction awaiting review.
const StagingStatusPending = "pending"
