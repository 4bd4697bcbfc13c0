package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from IndexStore which stores and searches
// vectors. EmbeddingService generates vectors; IndexStore persists them.
//
// Deterministic modulo upstream model nondeterminism: identical input
// under an unchanged model version yields an equivalent vector. The
// engine tags every vector with ModelName() so indexes can enforce the
// single-model-per-index invariant.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - OpenAI-compatible inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Calls are
	// internally split into bounded batches to respect upstream size
	// limits, and output order always matches input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	Dimensions() int

	// ModelName returns the embedding model identifier. Indexes built
	// under one model refuse queries embedded under another.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to an index build.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
