package driven

import (
	"context"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// IndexStore is the persisted per-document nearest-neighbour index:
// one logical index per document ID, holding the vector set and the
// parallel unit metadata.
//
// Invariants enforced by implementations:
//   - Vector set and unit metadata have identical cardinality and
//     matching order at all times; any deviation is reported as
//     domain.ErrIndexCorrupted on load.
//   - All vectors in one index share the dimensionality of a single
//     embedding model version. A rebuild is required on model change.
//
// Callers must serialise Build/Query/Clear per document ID (single
// writer, readers wait for the writer). Different document IDs are
// fully independent.
type IndexStore interface {
	// Build stores embedded units for the document, replacing any prior
	// index for that ID. Idempotent: rebuilding with identical units
	// and model yields an index that answers queries identically.
	Build(ctx context.Context, documentID, model string, units []domain.EmbeddedUnit) error

	// Query returns the topK units ranked by descending cosine
	// similarity to the query vector, ties broken by ascending unit
	// index. Returns domain.ErrIndexNotFound if the document was never
	// built or was cleared, and domain.ErrModelMismatch if model
	// differs from the one the index was built with.
	Query(ctx context.Context, documentID, model string, vector []float32, topK int) ([]domain.UnitHit, error)

	// Units returns the stored unit metadata in ascending index order,
	// without vectors. Returns domain.ErrIndexNotFound when absent.
	Units(ctx context.Context, documentID string) ([]domain.Unit, error)

	// Exists reports whether an index is present for the document.
	Exists(ctx context.Context, documentID string) (bool, error)

	// Clear deletes the persisted index state for the document.
	// Clearing a nonexistent index is a no-op.
	Clear(ctx context.Context, documentID string) error

	// ClearStrict behaves like Clear but returns domain.ErrIndexNotFound
	// when no index exists, for callers that opt into strict mode.
	ClearStrict(ctx context.Context, documentID string) error
}
