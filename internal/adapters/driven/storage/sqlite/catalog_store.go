package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// catalogStore implements driven.SourceCatalog.
type catalogStore struct {
	store *Store
}

var _ driven.SourceCatalog = (*catalogStore)(nil)

// Save inserts or updates a catalog entry.
func (s *catalogStore) Save(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		doc.ID = domain.DocumentID(doc.SourceURL, doc.SourceType)
	}

	now := time.Now().UTC()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, issue_id, issue_type, source_type, source_url, doc_class, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			issue_id = excluded.issue_id,
			issue_type = excluded.issue_type,
			source_type = excluded.source_type,
			source_url = excluded.source_url,
			doc_class = excluded.doc_class,
			updated_at = excluded.updated_at
	`, doc.ID, nullString(doc.IssueID), doc.IssueType, string(doc.SourceType),
		doc.SourceURL, doc.DocClass, now, now)

	if err != nil {
		return fmt.Errorf("saving catalog entry: %w", err)
	}
	return nil
}

// FindByIssue returns all documents linked to the issue, PDFs before
// HTML, each group in insertion order.
func (s *catalogStore) FindByIssue(ctx context.Context, issueID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, issue_id, issue_type, source_type, source_url, doc_class
		FROM sources WHERE issue_id = ?
		ORDER BY CASE source_type WHEN 'PDF' THEN 0 ELSE 1 END, rowid
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying catalog by issue: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// FindByLink locates a single document by catalog ID, source URL or
// full URL. Exact matches are tried first, then substring matches.
func (s *catalogStore) FindByLink(ctx context.Context, link string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, issue_id, issue_type, source_type, source_url, doc_class
		FROM sources WHERE id = ? OR source_url = ?
		LIMIT 1
	`, link, link)

	doc, err := scanCatalogRow(row.Scan)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Fall back to substring matching in either direction: a stored
	// URL inside the given link, or the link inside a stored URL.
	row = s.store.db.QueryRowContext(ctx, `
		SELECT id, issue_id, issue_type, source_type, source_url, doc_class
		FROM sources
		WHERE instr(?, source_url) > 0 OR instr(source_url, ?) > 0
		ORDER BY length(source_url) DESC
		LIMIT 1
	`, link, link)

	doc, err = scanCatalogRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, link)
		}
		return nil, err
	}
	return doc, nil
}

// ResolveIssueID returns the issue ID associated with a source link.
func (s *catalogStore) ResolveIssueID(ctx context.Context, link string) (string, error) {
	doc, err := s.FindByLink(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return "", fmt.Errorf("%w: no issue for link %s", domain.ErrIssueNotFound, link)
		}
		return "", err
	}
	if doc.IssueID == "" {
		return "", fmt.Errorf("%w: document %s has no issue association", domain.ErrIssueNotFound, doc.ID)
	}
	return doc.IssueID, nil
}

// List returns every catalog entry in insertion order.
func (s *catalogStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, issue_id, issue_type, source_type, source_url, doc_class
		FROM sources ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// collectDocuments drains a catalog result set.
func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		doc, err := scanCatalogRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog rows: %w", err)
	}
	return docs, nil
}

// scanCatalogRow scans one sources row from a Scan function.
func scanCatalogRow(scan func(...any) error) (*domain.Document, error) {
	var doc domain.Document
	var issueID sql.NullString
	var sourceType string
	if err := scan(&doc.ID, &issueID, &doc.IssueType, &sourceType,
		&doc.SourceURL, &doc.DocClass); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning catalog row: %w", err)
	}
	doc.IssueID = issueID.String
	doc.SourceType = domain.SourceType(sourceType)
	return &doc, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
