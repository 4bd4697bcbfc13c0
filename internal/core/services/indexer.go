package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driving"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// Indexer builds, queries and clears per-document semantic indexes.
// Operations on the same document ID are serialised through a keyed
// mutex (single writer, queries wait for an in-flight build); distinct
// documents proceed independently.
type Indexer struct {
	chunkers driven.ChunkerRegistry
	embedder driven.EmbeddingService
	store    driven.IndexStore
	retry    RetryPolicy

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIndexer creates an index service.
func NewIndexer(
	chunkers driven.ChunkerRegistry,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	retry RetryPolicy,
) *Indexer {
	return &Indexer{
		chunkers: chunkers,
		embedder: embedder,
		store:    store,
		retry:    retry,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex for a document ID, creating it on first use.
func (s *Indexer) lock(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[documentID] = l
	}
	return l
}

// Build chunks, embeds and indexes the document, replacing any prior
// index for its ID. Returns the number of units indexed.
func (s *Indexer) Build(ctx context.Context, doc domain.Document, content []byte) (int, error) {
	chunker, err := s.chunkers.ForType(doc.SourceType)
	if err != nil {
		return 0, fmt.Errorf("select chunker: %w", err)
	}

	units, err := chunker.Chunk(ctx, doc, content)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}
	logger.Debug("Chunked %s into %d units", doc.ID, len(units))

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	var vectors [][]float32
	err = s.retry.Do(ctx, "embed batch", func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = s.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	if len(vectors) != len(units) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d units", doc.ID, len(vectors), len(units))
	}

	embedded := make([]domain.EmbeddedUnit, len(units))
	for i := range units {
		embedded[i] = domain.EmbeddedUnit{Unit: units[i], Vector: vectors[i]}
	}

	l := s.lock(doc.ID)
	l.Lock()
	defer l.Unlock()

	if err := s.store.Build(ctx, doc.ID, s.embedder.ModelName(), embedded); err != nil {
		return 0, fmt.Errorf("store index %s: %w", doc.ID, err)
	}
	logger.Info("Indexed %s: %d units under model %s", doc.ID, len(embedded), s.embedder.ModelName())
	return len(embedded), nil
}

// Query embeds the query text and returns ranked unit hits for the
// document.
func (s *Indexer) Query(ctx context.Context, documentID, query string, topK int) ([]domain.UnitHit, error) {
	var vector []float32
	err := s.retry.Do(ctx, "embed query", func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = s.embedder.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	l := s.lock(documentID)
	l.Lock()
	defer l.Unlock()

	hits, err := s.store.Query(ctx, documentID, s.embedder.ModelName(), vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", documentID, err)
	}
	return hits, nil
}

// Units returns the indexed unit metadata in ascending index order.
func (s *Indexer) Units(ctx context.Context, documentID string) ([]domain.Unit, error) {
	l := s.lock(documentID)
	l.Lock()
	defer l.Unlock()

	return s.store.Units(ctx, documentID)
}

// Clear removes the persisted index for the document. With strict set,
// clearing a nonexistent index returns domain.ErrIndexNotFound instead
// of succeeding silently.
func (s *Indexer) Clear(ctx context.Context, documentID string, strict bool) error {
	l := s.lock(documentID)
	l.Lock()
	defer l.Unlock()

	if strict {
		return s.store.ClearStrict(ctx, documentID)
	}
	return s.store.Clear(ctx, documentID)
}

// Exists reports whether an index is present for the document.
func (s *Indexer) Exists(ctx context.Context, documentID string) (bool, error) {
	return s.store.Exists(ctx, documentID)
}
