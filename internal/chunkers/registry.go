// Package chunkers provides the document chunker implementations and
// the registry selecting one by source type.
package chunkers

import (
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ChunkerRegistry = (*Registry)(nil)

// Registry maps source types to chunkers.
type Registry struct {
	chunkers map[domain.SourceType]driven.Chunker
}

// NewRegistry creates a registry over the given chunkers.
func NewRegistry(chunkers ...driven.Chunker) *Registry {
	r := &Registry{chunkers: make(map[domain.SourceType]driven.Chunker)}
	for _, c := range chunkers {
		r.chunkers[c.Supports()] = c
	}
	return r
}

// ForType returns the chunker for the given source type.
func (r *Registry) ForType(sourceType domain.SourceType) (driven.Chunker, error) {
	c, ok := r.chunkers[sourceType]
	if !ok {
		return nil, domain.ErrUnsupportedFormat
	}
	return c, nil
}
