package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// MergeEngine folds per-document extraction results into one canonical
// issue-level record. Merging is a pure function of its inputs: the
// record is rebuilt from scratch on every run, never patched.
type MergeEngine struct {
	table driven.FieldTable
}

// NewMergeEngine creates a merge engine over the field table, which
// supplies per-field merge semantics (list vs scalar, authoritative
// source type).
func NewMergeEngine(table driven.FieldTable) *MergeEngine {
	return &MergeEngine{table: table}
}

// Merge combines results into an issue record. Results must be in
// document processing order; for scalar fields the last write wins
// unless the field names an authoritative source type, in which case a
// result from that type beats any other regardless of order. List
// fields union across documents with exact-key deduplication.
func (m *MergeEngine) Merge(issueID string, results []domain.ExtractionResult) *domain.IssueRecord {
	record := &domain.IssueRecord{
		IssueID:  issueID,
		Fields:   make(map[domain.ExtractionField]domain.MergedField),
		Complete: true,
	}

	byField := make(map[domain.ExtractionField][]domain.ExtractionResult)
	var order []domain.ExtractionField
	for _, res := range results {
		if _, seen := byField[res.Field]; !seen {
			order = append(order, res.Field)
		}
		byField[res.Field] = append(byField[res.Field], res)
		record.Documents = appendUnique(record.Documents, res.DocumentID)
	}

	for _, field := range order {
		group := byField[field]
		def, err := m.table.Definition(field)
		if err != nil {
			// Unknown fields carry free-form payloads; merge as scalar.
			def = &domain.FieldDefinition{Field: field}
		}

		var merged domain.MergedField
		if def.ListField {
			merged = mergeList(field, group)
		} else {
			merged = mergeScalar(field, def, group)
		}
		record.Fields[field] = merged
	}

	return record
}

// mergeList unions list payloads across documents. Entries are
// deduplicated by exact identity key, first occurrence winning; no
// fuzzy name matching is applied, so spelling variants remain distinct
// entries for the downstream review step to resolve.
func mergeList(field domain.ExtractionField, group []domain.ExtractionResult) domain.MergedField {
	merged := domain.MergedField{SourcePages: make(map[string][]int)}

	var union []json.RawMessage
	seen := make(map[string]bool)
	for _, res := range group {
		var items []json.RawMessage
		if err := json.Unmarshal(res.Payload, &items); err != nil {
			logger.Warn("Merge: %s payload from %s is not a list, skipping: %v", field, res.DocumentID, err)
			continue
		}

		contributed := false
		for _, item := range items {
			key := listIdentityKey(field, item)
			if seen[key] {
				logger.Debug("Merge: duplicate %s entry from %s suppressed", field, res.DocumentID)
				continue
			}
			seen[key] = true
			union = append(union, item)
			contributed = true
		}

		merged.ContributingDocs = appendUnique(merged.ContributingDocs, res.DocumentID)
		merged.SourcePages[res.DocumentID] = res.SourcePages
		if !contributed {
			logger.Debug("Merge: %s from %s added no new entries", field, res.DocumentID)
		}
	}

	payload, err := json.Marshal(union)
	if err != nil {
		payload = json.RawMessage("[]")
	}
	if union == nil {
		payload = json.RawMessage("[]")
	}
	merged.Payload = payload
	return merged
}

// listIdentityKey derives the deduplication key for one list entry.
// Investors use the exact (name, level) pair; other list fields fall
// back to the serialised entry itself.
func listIdentityKey(field domain.ExtractionField, item json.RawMessage) string {
	if field == domain.FieldInvestors {
		var inv domain.Investor
		if err := json.Unmarshal(item, &inv); err == nil {
			return inv.IdentityKey()
		}
	}
	return string(item)
}

// mergeScalar picks one payload for a scalar or object field. Later
// documents override earlier ones, except that a result from the
// field's authoritative source type always wins. Losing sources are
// logged, never silently dropped.
func mergeScalar(field domain.ExtractionField, def *domain.FieldDefinition, group []domain.ExtractionResult) domain.MergedField {
	winner := group[0]
	for _, res := range group[1:] {
		if def.AuthoritativeSource != nil && winner.SourceType == *def.AuthoritativeSource && res.SourceType != *def.AuthoritativeSource {
			logger.Info("Merge: %s from %s loses to authoritative %s result from %s",
				field, res.DocumentID, winner.SourceType, winner.DocumentID)
			continue
		}
		logger.Info("Merge: %s from %s overrides earlier result from %s", field, res.DocumentID, winner.DocumentID)
		winner = res
	}

	return domain.MergedField{
		Payload:          winner.Payload,
		ContributingDocs: []string{winner.DocumentID},
		SourcePages:      map[string][]int{winner.DocumentID: winner.SourcePages},
	}
}

// WriteArtifact writes the per-issue extraction file, grouped by
// document name: {issue_id}_extraction.json under outputDir. Each
// document entry carries the issue ID, the document's field payloads
// and the evidence pages each payload was extracted from.
func WriteArtifact(outputDir, issueID string, results []domain.ExtractionResult) (string, error) {
	docs := make(map[string]map[string]any)
	for _, res := range results {
		entry, ok := docs[res.DocumentID]
		if !ok {
			entry = map[string]any{
				"issue_id": res.IssueID,
				"id":       res.DocumentID,
			}
			docs[res.DocumentID] = entry
		}
		entry[string(res.Field)] = res.Payload
		if len(res.SourcePages) > 0 {
			entry[string(res.Field)+"_source_pages"] = res.SourcePages
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s_extraction.json", issueID))

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialise extraction output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write extraction output: %w", err)
	}
	logger.Info("Extraction output written to %s", path)
	return path, nil
}

// appendUnique appends s to list if not already present, preserving
// order.
func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
