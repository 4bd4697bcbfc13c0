package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// indexHeader is the persisted per-document index metadata.
type indexHeader struct {
	model      string
	dimensions int
	unitCount  int
}

// Build stores embedded units for the document, replacing any prior
// index for that ID in a single transaction.
func (s *indexStore) Build(ctx context.Context, documentID, model string, units []domain.EmbeddedUnit) error {
	if len(units) == 0 {
		return fmt.Errorf("%w: refusing to build empty index for %s", domain.ErrEmptyDocument, documentID)
	}

	dimensions := len(units[0].Vector)
	for _, u := range units {
		if len(u.Vector) != dimensions {
			return fmt.Errorf("%w: unit %d has %d dimensions, expected %d",
				domain.ErrIndexCorrupted, u.Unit.Index, len(u.Vector), dimensions)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Replace wholesale: cascade removes the old unit rows.
	if _, err := tx.ExecContext(ctx, "DELETE FROM indexes WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing prior index: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO indexes (document_id, model, dimensions, unit_count)
		VALUES (?, ?, ?, ?)
	`, documentID, model, dimensions, len(units)); err != nil {
		return fmt.Errorf("saving index header: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_units (document_id, idx, text, image_path, image_page, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing unit insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range units {
		var imagePath sql.NullString
		var imagePage sql.NullInt64
		if u.Unit.Image != nil {
			imagePath = sql.NullString{String: u.Unit.Image.DocumentPath, Valid: true}
			imagePage = sql.NullInt64{Int64: int64(u.Unit.Image.Page), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, documentID, u.Unit.Index, u.Unit.Text,
			imagePath, imagePage, float32SliceToBytes(u.Vector)); err != nil {
			return fmt.Errorf("saving unit %d: %w", u.Unit.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns the topK units ranked by descending cosine similarity,
// ties broken by ascending unit index.
func (s *indexStore) Query(ctx context.Context, documentID, model string, vector []float32, topK int) ([]domain.UnitHit, error) {
	header, err := s.header(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if header.model != model {
		return nil, fmt.Errorf("%w: index built with %q, queried with %q",
			domain.ErrModelMismatch, header.model, model)
	}
	if len(vector) != header.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrModelMismatch, len(vector), header.dimensions)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT idx, text, image_path, image_page, embedding
		FROM index_units WHERE document_id = ?
		ORDER BY idx
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var hits []domain.UnitHit
	for rows.Next() {
		unit, blob, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		if len(blob) != header.dimensions*4 {
			return nil, fmt.Errorf("%w: unit %d vector is %d bytes, expected %d",
				domain.ErrIndexCorrupted, unit.Index, len(blob), header.dimensions*4)
		}
		hits = append(hits, domain.UnitHit{
			Unit:       unit,
			Similarity: cosineSimilarity(vector, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}

	if len(hits) != header.unitCount {
		return nil, fmt.Errorf("%w: %d unit rows, header says %d",
			domain.ErrIndexCorrupted, len(hits), header.unitCount)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Unit.Index < hits[j].Unit.Index
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Units returns the stored unit metadata in ascending index order,
// without vectors.
func (s *indexStore) Units(ctx context.Context, documentID string) ([]domain.Unit, error) {
	header, err := s.header(ctx, documentID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT idx, text, image_path, image_page
		FROM index_units WHERE document_id = ?
		ORDER BY idx
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		var unit domain.Unit
		var imagePath sql.NullString
		var imagePage sql.NullInt64
		if err := rows.Scan(&unit.Index, &unit.Text, &imagePath, &imagePage); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		if imagePath.Valid {
			unit.Image = &domain.PageImageRef{
				DocumentPath: imagePath.String,
				Page:         int(imagePage.Int64),
			}
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}

	if len(units) != header.unitCount {
		return nil, fmt.Errorf("%w: %d unit rows, header says %d",
			domain.ErrIndexCorrupted, len(units), header.unitCount)
	}
	return units, nil
}

// Exists reports whether an index is present for the document.
func (s *indexStore) Exists(ctx context.Context, documentID string) (bool, error) {
	_, err := s.header(ctx, documentID)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear deletes the persisted index state for the document.
func (s *indexStore) Clear(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM indexes WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	return nil
}

// ClearStrict behaves like Clear but reports a missing index.
func (s *indexStore) ClearStrict(ctx context.Context, documentID string) error {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM indexes WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking cleared rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, documentID)
	}
	return nil
}

// header loads the index metadata row.
func (s *indexStore) header(ctx context.Context, documentID string) (*indexHeader, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT model, dimensions, unit_count FROM indexes WHERE document_id = ?
	`, documentID)

	var h indexHeader
	if err := row.Scan(&h.model, &h.dimensions, &h.unitCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, documentID)
		}
		return nil, fmt.Errorf("scanning index header: %w", err)
	}
	return &h, nil
}

// scanUnit scans one unit row including its embedding blob.
func scanUnit(rows *sql.Rows) (domain.Unit, []byte, error) {
	var unit domain.Unit
	var imagePath sql.NullString
	var imagePage sql.NullInt64
	var blob []byte
	if err := rows.Scan(&unit.Index, &unit.Text, &imagePath, &imagePage, &blob); err != nil {
		return domain.Unit{}, nil, fmt.Errorf("scanning unit: %w", err)
	}
	if imagePath.Valid {
		unit.Image = &domain.PageImageRef{
			DocumentPath: imagePath.String,
			Page:         int(imagePage.Int64),
		}
	}
	return unit, blob, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine similarity of two equal-length
// vectors. Zero vectors yield similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
