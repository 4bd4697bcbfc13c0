package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// stagingStore implements driven.StagingStore.
type stagingStore struct {
	store *Store
}

var _ driven.StagingStore = (*stagingStore)(nil)

// Upsert writes the entry, replacing any existing row for the same
// (SourceURL, Field) key. New writes always reset status to pending.
func (s *stagingStore) Upsert(ctx context.Context, entry domain.StagingEntry) error {
	if entry.Status == "" {
		entry.Status = domain.StagingStatusPending
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO staging (source_url, extraction_field, issue_id, doc_id, payload, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url, extraction_field) DO UPDATE SET
			issue_id = excluded.issue_id,
			doc_id = excluded.doc_id,
			payload = excluded.payload,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, entry.SourceURL, string(entry.Field), entry.IssueID, entry.DocID,
		string(entry.Payload), entry.Status, entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upserting staging row: %w", err)
	}
	return nil
}

// Get retrieves the live row for the key.
func (s *stagingStore) Get(ctx context.Context, sourceURL string, field domain.ExtractionField) (*domain.StagingEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_url, extraction_field, issue_id, doc_id, payload, status, updated_at
		FROM staging WHERE source_url = ? AND extraction_field = ?
	`, sourceURL, string(field))

	entry, err := scanStagingEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no staging row for %s/%s",
				domain.ErrDocumentNotFound, sourceURL, field)
		}
		return nil, err
	}
	return entry, nil
}

// ListByIssue returns all live rows for an issue.
func (s *stagingStore) ListByIssue(ctx context.Context, issueID string) ([]domain.StagingEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_url, extraction_field, issue_id, doc_id, payload, status, updated_at
		FROM staging WHERE issue_id = ?
		ORDER BY source_url, extraction_field
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying staging rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.StagingEntry
	for rows.Next() {
		entry, err := scanStagingEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staging rows: %w", err)
	}
	return entries, nil
}

// Close is a no-op: the connection belongs to the parent Store.
func (s *stagingStore) Close() error {
	return nil
}

// scanStagingEntry scans one staging row from a Scan function.
func scanStagingEntry(scan func(...any) error) (*domain.StagingEntry, error) {
	var entry domain.StagingEntry
	var field, payload string
	var updatedAt sql.NullTime
	if err := scan(&entry.SourceURL, &field, &entry.IssueID, &entry.DocID,
		&payload, &entry.Status, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning staging row: %w", err)
	}
	entry.Field = domain.ExtractionField(field)
	entry.Payload = json.RawMessage(payload)
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}
	return &entry, nil
}
