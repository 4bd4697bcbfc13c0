// Package mysql provides a MySQL-backed StagingStore for deployments
// where review happens against a shared production database.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure StagingStore implements the interface.
var _ driven.StagingStore = (*StagingStore)(nil)

// createTableQuery brings up the staging table on first use. The
// (source_url, extraction_field) unique key is what makes upserts
// replace rather than duplicate.
const createTableQuery = `
CREATE TABLE IF NOT EXISTS ai_extractions (
	id INT AUTO_INCREMENT PRIMARY KEY,
	issue_id VARCHAR(255) NULL,
	doc_id VARCHAR(255) NULL,
	source_url VARCHAR(767) NOT NULL,
	extraction_field VARCHAR(255) NOT NULL,
	data JSON,
	status VARCHAR(50) DEFAULT 'pending',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY unique_url_field (source_url, extraction_field)
)`

// StagingStore is a MySQL implementation of driven.StagingStore using
// the ai_extractions table.
type StagingStore struct {
	db *sql.DB
}

// NewStagingStore opens a connection using a go-sql-driver DSN
// (user:pass@tcp(host:port)/dbname?parseTime=true) and ensures the
// staging table exists.
func NewStagingStore(dsn string) (*StagingStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql staging: DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql staging unreachable: %w", err)
	}

	if _, err := db.Exec(createTableQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ai_extractions table: %w", err)
	}

	return &StagingStore{db: db}, nil
}

// Upsert writes the entry, replacing any existing row for the same
// (SourceURL, Field) key. New writes always reset status to pending.
func (s *StagingStore) Upsert(ctx context.Context, entry domain.StagingEntry) error {
	if entry.SourceURL == "" {
		return fmt.Errorf("mysql staging: source URL is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_extractions (issue_id, doc_id, source_url, extraction_field, data, status)
		VALUES (?, ?, ?, ?, ?, 'pending')
		ON DUPLICATE KEY UPDATE
			issue_id = VALUES(issue_id),
			doc_id = VALUES(doc_id),
			data = VALUES(data),
			status = 'pending',
			updated_at = CURRENT_TIMESTAMP
	`, nullString(entry.IssueID), nullString(entry.DocID), entry.SourceURL,
		string(entry.Field), string(entry.Payload))

	if err != nil {
		return fmt.Errorf("upserting staging row: %w", err)
	}
	return nil
}

// Get retrieves the live row for the key.
func (s *StagingStore) Get(ctx context.Context, sourceURL string, field domain.ExtractionField) (*domain.StagingEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT issue_id, doc_id, source_url, extraction_field, data, status, updated_at
		FROM ai_extractions WHERE source_url = ? AND extraction_field = ?
	`, sourceURL, string(field))

	entry, err := scanEntry(row.Scan)
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
func (s *StagingStore) ListByIssue(ctx context.Context, issueID string) ([]domain.StagingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, doc_id, source_url, extraction_field, data, status, updated_at
		FROM ai_extractions WHERE issue_id = ?
		ORDER BY source_url, extraction_field
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying staging rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.StagingEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
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

// Close releases the connection pool.
func (s *StagingStore) Close() error {
	return s.db.Close()
}

// scanEntry scans one ai_extractions row from a Scan function.
func scanEntry(scan func(...any) error) (*domain.StagingEntry, error) {
	var entry domain.StagingEntry
	var issueID, docID, payload sql.NullString
	var field string
	var updatedAt sql.NullTime
	if err := scan(&issueID, &docID, &entry.SourceURL, &field,
		&payload, &entry.Status, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning staging row: %w", err)
	}
	entry.IssueID = issueID.String
	entry.DocID = docID.String
	entry.Field = domain.ExtractionField(field)
	if payload.Valid {
		entry.Payload = json.RawMessage(payload.String)
	}
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}
	return &entry, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
