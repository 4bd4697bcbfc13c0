// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - Chunker / ChunkerRegistry: Splits raw documents into addressable units
//   - EmbeddingService: Maps text to fixed-length vectors (external API)
//   - IndexStore: Per-document persisted nearest-neighbour index
//   - Extractor: Structured-output model call (external API)
//   - StagingStore: Idempotent upsert table for AI-produced drafts
//   - SourceCatalog: Registry of documents and their issue linkage
//   - FieldTable: Externally configured field routing definitions
//   - PromptStore: Field instruction templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PageRenderer: Renders PDF pages to images. Without it, fields whose
//     routing requires images fall back to text-only extraction.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or chunker package
package driven
