package domain

import (
	"path"
	"strings"
)

// SourceType identifies the format of a source document.
type SourceType string

// Supported source formats.
const (
	// SourceTypePDF is a PDF disclosure (prospectus, memorandum, report).
	SourceTypePDF SourceType = "PDF"

	// SourceTypeHTML is an HTML disclosure (press release, announcement page).
	SourceTypeHTML SourceType = "HTML"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	return t == SourceTypePDF || t == SourceTypeHTML
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// ParseSourceType parses a source type string case-insensitively.
// Returns ErrUnsupportedFormat for anything other than PDF or HTML.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PDF":
		return SourceTypePDF, nil
	case "HTML":
		return SourceTypeHTML, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Document represents one source disclosure linked to an issue.
// Its identity is content-derived: the PDF filename or the HTML URL,
// so re-processing the same source always addresses the same index.
type Document struct {
	// ID is the stable content-derived identifier (filename or URL).
	ID string

	// IssueID links the document to the financial event it describes.
	// Empty when the document has not been associated with an issue yet.
	IssueID string

	// IssueType classifies the event (e.g. "rights_issue", "ipo").
	IssueType string

	// SourceType is the document format (PDF or HTML).
	SourceType SourceType

	// SourceURL is the raw location: a filename under the PDF directory,
	// or a full URL for HTML sources.
	SourceURL string

	// DocClass describes the disclosure kind within its format
	// (e.g. "prospectus", "memorandum", "press_release"). Field routing
	// tries classes in preference order.
	DocClass string
}

// DocumentID derives the stable identifier for a source location.
// PDFs are identified by basename, HTML sources by their full URL.
func DocumentID(sourceURL string, sourceType SourceType) string {
	if sourceType == SourceTypePDF {
		return path.Base(sourceURL)
	}
	return sourceURL
}

// PageImageRef locates a renderable page image within a PDF.
// Rendering itself is deferred to the PageRenderer boundary.
type PageImageRef struct {
	// DocumentPath is the filesystem path of the PDF.
	DocumentPath string

	// Page is the 1-based page number to render.
	Page int
}

// Unit is one addressable chunk of a Document: a PDF page or an HTML
// text block. Units are immutable; a document's unit set is replaced
// wholesale on re-index, never partially mutated.
type Unit struct {
	// Index is the 0-based, ordering-significant position in the document.
	Index int

	// Text is the raw extracted text of the unit. May be empty for
	// image-only PDF pages; the index sequence stays gapless regardless.
	Text string

	// Image references the renderable page image. Nil for HTML units.
	Image *PageImageRef
}

// Page returns the 1-based page number for display and provenance.
func (u Unit) Page() int {
	return u.Index + 1
}

// EmbeddedUnit pairs a unit with its embedding vector. All vectors in
// one index share the dimensionality of a single embedding model version.
type EmbeddedUnit struct {
	Unit   Unit
	Vector []float32
}

// UnitHit is a ranked semantic search result.
type UnitHit struct {
	// Unit is the matched chunk.
	Unit Unit

	// Similarity is the cosine similarity score (higher is better).
	Similarity float64
}
