package services

import (
	"sort"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

const (
	// maxSelectedPages bounds the evidence sent to the extractor.
	maxSelectedPages = 4

	// similarityBand is the relative band within which the second hit
	// is considered as strong as the top hit.
	similarityBand = 0.95
)

// SelectPages turns ranked hits into the 1-based page set to extract
// from, per the configured strategy. totalPages bounds forward
// expansion so a synthetic next page is never past the document end.
//
// The consecutive strategy exists to capture tables that span page
// boundaries: a shareholder table that starts on the top-ranked page
// routinely continues onto the next.
func SelectPages(hits []domain.UnitHit, strategy domain.PageStrategy, totalPages int) []int {
	if len(hits) == 0 {
		return nil
	}
	if strategy == domain.StrategyTopHit {
		return []int{hits[0].Unit.Page()}
	}
	return selectConsecutive(hits, totalPages)
}

// selectConsecutive picks a consecutive block of up to maxSelectedPages
// pages around the top hit:
//   - the top hit's page, always
//   - the second hit's page when its similarity is within the band and
//     it is a different page
//   - the page immediately after the top hit, even when unranked
//   - then forward, then backward, through pages that are ranked
//
// The result is deduplicated and sorted ascending.
func selectConsecutive(hits []domain.UnitHit, totalPages int) []int {
	top := hits[0]
	pages := []int{top.Unit.Page()}

	if len(hits) > 1 && len(pages) < maxSelectedPages {
		second := hits[1]
		if second.Similarity >= top.Similarity*similarityBand && second.Unit.Page() != top.Unit.Page() {
			pages = append(pages, second.Unit.Page())
		}
	}

	ranked := make(map[int]bool, len(hits))
	for _, h := range hits {
		ranked[h.Unit.Page()] = true
	}

	// The page after the top hit is included for context even when it
	// did not rank.
	next := top.Unit.Page() + 1
	if len(pages) < maxSelectedPages && next <= totalPages {
		pages = append(pages, next)
	}

	for p := next + 1; ranked[p] && len(pages) < maxSelectedPages; p++ {
		pages = append(pages, p)
	}
	for p := top.Unit.Page() - 1; p > 0 && ranked[p] && len(pages) < maxSelectedPages; p-- {
		pages = append(pages, p)
	}

	seen := make(map[int]bool, len(pages))
	unique := pages[:0]
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	sort.Ints(unique)
	return unique
}
