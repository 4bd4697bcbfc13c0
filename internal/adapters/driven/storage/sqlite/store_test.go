package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

// setupTestStore creates a store backed by a temporary database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func embeddedUnits(vectors ...[]float32) []domain.EmbeddedUnit {
	units := make([]domain.EmbeddedUnit, len(vectors))
	for i, v := range vectors {
		units[i] = domain.EmbeddedUnit{
			Unit: domain.Unit{
				Index: i,
				Text:  "unit text",
				Image: &domain.PageImageRef{DocumentPath: "doc.pdf", Page: i + 1},
			},
			Vector: v,
		}
	}
	return units
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)

	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, filepath.Join(dir, "finlab.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store1, err := NewStore(dir)
	require.NoError(t, err)
	store1.Close()

	// Reopening runs migrations again without error
	store2, err := NewStore(dir)
	require.NoError(t, err)
	store2.Close()
}

// ==================== Index Store ====================

func TestIndexStore_BuildAndQuery(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	units := embeddedUnits(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0.9, 0.1, 0},
	)
	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", units))

	hits, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Exact match first, then the near-parallel vector
	assert.Equal(t, 0, hits[0].Unit.Index)
	assert.InDelta(t, 1.0, hits[0].Similarity, 0.0001)
	assert.Equal(t, 2, hits[1].Unit.Index)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	// Image metadata survives the round trip
	require.NotNil(t, hits[0].Unit.Image)
	assert.Equal(t, 1, hits[0].Unit.Image.Page)
}

func TestIndexStore_Query_TieBreaksByIndex(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	// Identical vectors: identical similarity, ascending index order
	units := embeddedUnits(
		[]float32{1, 0},
		[]float32{1, 0},
	)
	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", units))

	hits, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0}, 5)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Unit.Index)
	assert.Equal(t, 1, hits[1].Unit.Index)
}

func TestIndexStore_Build_ReplacesPriorIndex(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a",
		embeddedUnits([]float32{1, 0}, []float32{0, 1})))
	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-b",
		embeddedUnits([]float32{1, 0, 0})))

	// Old model is gone
	_, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrModelMismatch)

	units, err := idx.Units(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestIndexStore_Build_RebuildSameInputIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	units := embeddedUnits(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0.9, 0.1, 0},
	)
	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", units))

	firstUnits, err := idx.Units(ctx, "doc.pdf")
	require.NoError(t, err)
	firstHits, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0, 0}, 3)
	require.NoError(t, err)

	// Rebuilding with the identical input changes nothing observable.
	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", units))

	secondUnits, err := idx.Units(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, firstUnits, secondUnits)

	secondHits, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, firstHits, secondHits)
}

func TestIndexStore_Build_RejectsEmptyUnits(t *testing.T) {
	store := setupTestStore(t)

	err := store.IndexStore().Build(context.Background(), "doc.pdf", "model-a", nil)

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestIndexStore_Build_RejectsMixedDimensions(t *testing.T) {
	store := setupTestStore(t)

	err := store.IndexStore().Build(context.Background(), "doc.pdf", "model-a",
		embeddedUnits([]float32{1, 0}, []float32{1, 0, 0}))

	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestIndexStore_Query_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.IndexStore().Query(context.Background(), "missing.pdf", "model-a", []float32{1}, 1)

	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestIndexStore_Query_ModelMismatch(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", embeddedUnits([]float32{1, 0})))

	_, err := idx.Query(ctx, "doc.pdf", "model-b", []float32{1, 0}, 1)

	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestIndexStore_Query_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", embeddedUnits([]float32{1, 0})))

	_, err := idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0, 0}, 1)

	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestIndexStore_Query_DetectsCorruption(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a",
		embeddedUnits([]float32{1, 0}, []float32{0, 1})))

	// Drop a unit row behind the store's back
	_, err := store.db.Exec("DELETE FROM index_units WHERE document_id = ? AND idx = 1", "doc.pdf")
	require.NoError(t, err)

	_, err = idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0}, 2)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)

	_, err = idx.Units(ctx, "doc.pdf")
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestIndexStore_Query_DetectsVectorWidthCorruption(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", embeddedUnits([]float32{1, 0})))

	// Truncate the blob
	_, err := store.db.Exec("UPDATE index_units SET embedding = X'00000000' WHERE document_id = ?", "doc.pdf")
	require.NoError(t, err)

	_, err = idx.Query(ctx, "doc.pdf", "model-a", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestIndexStore_Units(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a",
		embeddedUnits([]float32{1, 0}, []float32{0, 1}, []float32{1, 1})))

	units, err := idx.Units(ctx, "doc.pdf")

	require.NoError(t, err)
	require.Len(t, units, 3)
	for i, u := range units {
		assert.Equal(t, i, u.Index)
	}
}

func TestIndexStore_Units_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.IndexStore().Units(context.Background(), "missing.pdf")

	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestIndexStore_ExistsAndClear(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	exists, err := idx.Exists(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", embeddedUnits([]float32{1})))

	exists, err = idx.Exists(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, idx.Clear(ctx, "doc.pdf"))

	exists, err = idx.Exists(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	// Clearing again is a no-op
	assert.NoError(t, idx.Clear(ctx, "doc.pdf"))
}

func TestIndexStore_ClearStrict(t *testing.T) {
	store := setupTestStore(t)
	idx := store.IndexStore()
	ctx := context.Background()

	err := idx.ClearStrict(ctx, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	require.NoError(t, idx.Build(ctx, "doc.pdf", "model-a", embeddedUnits([]float32{1})))
	assert.NoError(t, idx.ClearStrict(ctx, "doc.pdf"))
}

// ==================== Source Catalog ====================

func TestCatalog_SaveAndFindByIssue(t *testing.T) {
	store := setupTestStore(t)
	catalog := store.Catalog()
	ctx := context.Background()

	// Insert HTML first to prove PDF-before-HTML ordering
	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-1",
		IssueType:  "rights_issue",
		SourceType: domain.SourceTypeHTML,
		SourceURL:  "https://example.com/outcome",
	}))
	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-1",
		IssueType:  "rights_issue",
		SourceType: domain.SourceTypePDF,
		SourceURL:  "prospectus.pdf",
		DocClass:   "prospectus",
	}))
	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-2",
		SourceType: domain.SourceTypePDF,
		SourceURL:  "other.pdf",
	}))

	docs, err := catalog.FindByIssue(ctx, "issue-1")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.SourceTypePDF, docs[0].SourceType)
	assert.Equal(t, "prospectus.pdf", docs[0].ID)
	assert.Equal(t, "prospectus", docs[0].DocClass)
	assert.Equal(t, domain.SourceTypeHTML, docs[1].SourceType)
	assert.Equal(t, "https://example.com/outcome", docs[1].ID)
}

func TestCatalog_Save_Upserts(t *testing.T) {
	store := setupTestStore(t)
	catalog := store.Catalog()
	ctx := context.Background()

	doc := domain.Document{
		IssueID:    "issue-1",
		SourceType: domain.SourceTypePDF,
		SourceURL:  "prospectus.pdf",
	}
	require.NoError(t, catalog.Save(ctx, doc))

	doc.IssueID = "issue-2"
	require.NoError(t, catalog.Save(ctx, doc))

	docs, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "issue-2", docs[0].IssueID)
}

func TestCatalog_FindByLink_Exact(t *testing.T) {
	store := setupTestStore(t)
	catalog := store.Catalog()
	ctx := context.Background()

	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-1",
		SourceType: domain.SourceTypePDF,
		SourceURL:  "prospectus.pdf",
	}))

	byID, err := catalog.FindByLink(ctx, "prospectus.pdf")
	require.NoError(t, err)
	assert.Equal(t, "issue-1", byID.IssueID)
}

func TestCatalog_FindByLink_Substring(t *testing.T) {
	store := setupTestStore(t)
	catalog := store.Catalog()
	ctx := context.Background()

	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-1",
		SourceType: domain.SourceTypeHTML,
		SourceURL:  "https://example.com/pressrelease/outcome",
	}))

	// Stored URL contains the link
	doc, err := catalog.FindByLink(ctx, "pressrelease/outcome")
	require.NoError(t, err)
	assert.Equal(t, "issue-1", doc.IssueID)

	// Link contains the stored URL
	doc, err = catalog.FindByLink(ctx, "https://example.com/pressrelease/outcome?utm=x")
	require.NoError(t, err)
	assert.Equal(t, "issue-1", doc.IssueID)
}

func TestCatalog_FindByLink_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Catalog().FindByLink(context.Background(), "nothing")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestCatalog_ResolveIssueID(t *testing.T) {
	store := setupTestStore(t)
	catalog := store.Catalog()
	ctx := context.Background()

	require.NoError(t, catalog.Save(ctx, domain.Document{
		IssueID:    "issue-1",
		SourceType: domain.SourceTypePDF,
		SourceURL:  "prospectus.pdf",
	}))
	require.NoError(t, catalog.Save(ctx, domain.Document{
		SourceType: domain.SourceTypePDF,
		SourceURL:  "unlinked.pdf",
	}))

	issueID, err := catalog.ResolveIssueID(ctx, "prospectus.pdf")
	require.NoError(t, err)
	assert.Equal(t, "issue-1", issueID)

	_, err = catalog.ResolveIssueID(ctx, "unlinked.pdf")
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)

	_, err = catalog.ResolveIssueID(ctx, "nothing-matches")
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)
}

// ==================== Staging Store ====================

func TestStagingStore_UpsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	staging := store.StagingStore()
	ctx := context.Background()

	entry := domain.StagingEntry{
		SourceURL: "prospectus.pdf",
		Field:     domain.FieldInvestors,
		IssueID:   "issue-1",
		DocID:     "prospectus.pdf",
		Payload:   json.RawMessage(`[{"name":"Alfa Fonder","level":1}]`),
	}
	require.NoError(t, staging.Upsert(ctx, entry))

	got, err := staging.Get(ctx, "prospectus.pdf", domain.FieldInvestors)

	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusPending, got.Status)
	assert.JSONEq(t, string(entry.Payload), string(got.Payload))
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStagingStore_Upsert_ReplacesRow(t *testing.T) {
	store := setupTestStore(t)
	staging := store.StagingStore()
	ctx := context.Background()

	first := domain.StagingEntry{
		SourceURL: "prospectus.pdf",
		Field:     domain.FieldInvestors,
		IssueID:   "issue-1",
		Payload:   json.RawMessage(`[{"name":"Alfa Fonder"}]`),
		Status:    "reviewed",
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, staging.Upsert(ctx, first))

	second := first
	second.Payload = json.RawMessage(`[{"name":"Beta Kapital"}]`)
	second.Status = ""
	second.UpdatedAt = time.Time{}
	require.NoError(t, staging.Upsert(ctx, second))

	entries, err := staging.ListByIssue(ctx, "issue-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `[{"name":"Beta Kapital"}]`, string(entries[0].Payload))
	// A rewrite resets the review state
	assert.Equal(t, domain.StagingStatusPending, entries[0].Status)
}

func TestStagingStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.StagingStore().Get(context.Background(), "missing.pdf", domain.FieldInvestors)

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestStagingStore_ListByIssue(t *testing.T) {
	store := setupTestStore(t)
	staging := store.StagingStore()
	ctx := context.Background()

	for _, field := range []domain.ExtractionField{domain.FieldInvestors, domain.FieldImportantDates} {
		require.NoError(t, staging.Upsert(ctx, domain.StagingEntry{
			SourceURL: "prospectus.pdf",
			Field:     field,
			IssueID:   "issue-1",
			Payload:   json.RawMessage(`{}`),
		}))
	}
	require.NoError(t, staging.Upsert(ctx, domain.StagingEntry{
		SourceURL: "other.pdf",
		Field:     domain.FieldInvestors,
		IssueID:   "issue-2",
		Payload:   json.RawMessage(`{}`),
	}))

	entries, err := staging.ListByIssue(ctx, "issue-1")

	require.NoError(t, err)
	assert.Len(t, entries, 2)

	empty, err := staging.ListByIssue(ctx, "issue-9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
