// Package domain defines the core business entities for finlab.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source disclosure (PDF prospectus, HTML press release)
//   - Unit: One addressable chunk of a document (a page or text block)
//   - ExtractionField: A named category of structured data to extract
//   - ExtractionResult: One field extracted from one document, with provenance
//   - IssueRecord: The merged, issue-level record across all documents
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
