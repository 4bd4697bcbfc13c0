package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// defaultTopK is the per-query hit count when a field definition does
// not set one.
const defaultTopK = 5

// FieldRouter turns the externally configured field table into routing
// decisions. It holds no state of its own; applicability and retrieval
// parameters live entirely in the table, so new fields are added by
// configuration alone.
type FieldRouter struct {
	table driven.FieldTable
}

// NewFieldRouter creates a router over the given field table.
func NewFieldRouter(table driven.FieldTable) *FieldRouter {
	return &FieldRouter{table: table}
}

// Route decides how to retrieve evidence for a field on a document of
// the given source type and issue type. An inapplicable pairing yields
// a plan with Applicable=false; the caller must skip the field, not
// force extraction.
func (r *FieldRouter) Route(
	field domain.ExtractionField, sourceType domain.SourceType, issueType string,
) (*domain.RoutePlan, error) {
	def, err := r.table.Definition(field)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", field, err)
	}

	if !def.AppliesTo(sourceType, issueType) {
		logger.Debug("Field %s not applicable for %s/%s, skipping", field, sourceType, issueType)
		return &domain.RoutePlan{Applicable: false}, nil
	}

	topK := def.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	strategy := def.PageStrategy
	if strategy == "" {
		strategy = domain.StrategyConsecutive
	}

	return &domain.RoutePlan{
		Applicable:    true,
		Queries:       def.Queries,
		RequiresImage: def.RequiresImage,
		TopK:          topK,
		Strategy:      strategy,
	}, nil
}

// Definition exposes the underlying table entry, used by the fields
// command and by merge to read list/authoritative semantics.
func (r *FieldRouter) Definition(field domain.ExtractionField) (*domain.FieldDefinition, error) {
	return r.table.Definition(field)
}

// Fields returns every defined field in table order.
func (r *FieldRouter) Fields() []domain.ExtractionField {
	return r.table.Fields()
}

// queryFunc issues one embedded query against an index.
type queryFunc func(ctx context.Context, query string, topK int) ([]domain.UnitHit, error)

// unionQuery issues every configured query and unions the hits,
// keeping the best similarity per unit. The union is re-ranked by
// descending similarity with ties broken by ascending unit index, the
// same ordering the index itself guarantees for a single query.
func unionQuery(ctx context.Context, queries []string, topK int, run queryFunc) ([]domain.UnitHit, error) {
	best := make(map[int]domain.UnitHit)
	for _, q := range queries {
		hits, err := run(ctx, q, topK)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if prev, ok := best[h.Unit.Index]; !ok || h.Similarity > prev.Similarity {
				best[h.Unit.Index] = h
			}
		}
	}

	merged := make([]domain.UnitHit, 0, len(best))
	for _, h := range best {
		merged = append(merged, h)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		return merged[i].Unit.Index < merged[j].Unit.Index
	})
	return merged, nil
}
