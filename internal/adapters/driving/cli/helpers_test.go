package cli

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driving"
)

// mockExtractionService returns a canned record.
type mockExtractionService struct {
	record  *domain.IssueRecord
	err     error
	lastReq driving.ExtractionRequest
}

func (m *mockExtractionService) Run(_ context.Context, req driving.ExtractionRequest) (*domain.IssueRecord, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

type mockIndexService struct {
	buildCount int
	hits       []domain.UnitHit
	units      []domain.Unit
	exists     bool
	clearedID  string
	strict     bool
	err        error
}

func (m *mockIndexService) Build(_ context.Context, _ domain.Document, _ []byte) (int, error) {
	return m.buildCount, m.err
}

func (m *mockIndexService) Query(_ context.Context, _, _ string, _ int) ([]domain.UnitHit, error) {
	return m.hits, m.err
}

func (m *mockIndexService) Units(_ context.Context, _ string) ([]domain.Unit, error) {
	return m.units, m.err
}

func (m *mockIndexService) Clear(_ context.Context, documentID string, strict bool) error {
	m.clearedID = documentID
	m.strict = strict
	return m.err
}

func (m *mockIndexService) Exists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.err
}

type mockCatalog struct {
	docs  []domain.Document
	saved []domain.Document
}

func (m *mockCatalog) FindByIssue(_ context.Context, issueID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range m.docs {
		if d.IssueID == issueID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindByLink(_ context.Context, link string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == link || m.docs[i].SourceURL == link {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockCatalog) ResolveIssueID(ctx context.Context, link string) (string, error) {
	doc, err := m.FindByLink(ctx, link)
	if err != nil || doc.IssueID == "" {
		return "", domain.ErrIssueNotFound
	}
	return doc.IssueID, nil
}

func (m *mockCatalog) Save(_ context.Context, doc domain.Document) error {
	m.saved = append(m.saved, doc)
	return nil
}

func (m *mockCatalog) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

type mockFieldTable struct {
	defs []domain.FieldDefinition
}

func (m *mockFieldTable) Definition(field domain.ExtractionField) (*domain.FieldDefinition, error) {
	for i := range m.defs {
		if m.defs[i].Field == field {
			return &m.defs[i], nil
		}
	}
	return nil, domain.ErrFieldUnknown
}

func (m *mockFieldTable) Fields() []domain.ExtractionField {
	out := make([]domain.ExtractionField, len(m.defs))
	for i := range m.defs {
		out[i] = m.defs[i].Field
	}
	return out
}

type mockStagingStore struct {
	entries []domain.StagingEntry
}

func (m *mockStagingStore) Upsert(_ context.Context, entry domain.StagingEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockStagingStore) Get(_ context.Context, sourceURL string, field domain.ExtractionField) (*domain.StagingEntry, error) {
	for i := range m.entries {
		if m.entries[i].SourceURL == sourceURL && m.entries[i].Field == field {
			return &m.entries[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockStagingStore) ListByIssue(_ context.Context, issueID string) ([]domain.StagingEntry, error) {
	var out []domain.StagingEntry
	for _, e := range m.entries {
		if e.IssueID == issueID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStagingStore) Close() error { return nil }

type mockConfigStore struct {
	values map[string]any
	saved  bool
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	v, _ := m.values[key].(bool)
	return v
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	v, _ := m.values[key].(float64)
	return v
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	v, _ := m.values[key].([]string)
	return v
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error {
	m.saved = true
	return nil
}

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string { return "/tmp/finlab/config.toml" }

type mockFetcher struct {
	content []byte
	err     error
}

func (m *mockFetcher) Fetch(_ context.Context, _ domain.Document) ([]byte, error) {
	return m.content, m.err
}

func (m *mockFetcher) LocalPath(_ domain.Document) (string, error) {
	return "", domain.ErrUnsupportedFormat
}

// testRecord is the merged record returned by the default mock
// extraction service.
func testRecord() *domain.IssueRecord {
	return &domain.IssueRecord{
		IssueID: "issue-42",
		Fields: map[domain.ExtractionField]domain.MergedField{
			domain.FieldImportantDates: {
				Payload:          json.RawMessage(`{"subscription_period_start":"2025-03-01"}`),
				ContributingDocs: []string{"memo.pdf"},
				SourcePages:      map[string][]int{"memo.pdf": {3}},
			},
		},
		Documents: []string{"memo.pdf"},
		Complete:  true,
	}
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{
			ID:         "memo.pdf",
			IssueID:    "issue-42",
			IssueType:  "rights_issue",
			SourceType: domain.SourceTypePDF,
			SourceURL:  "memo.pdf",
			DocClass:   "memorandum",
		},
		{
			ID:         "https://example.com/outcome",
			IssueID:    "issue-42",
			IssueType:  "rights_issue",
			SourceType: domain.SourceTypeHTML,
			SourceURL:  "https://example.com/outcome",
			DocClass:   "press_release",
		},
	}
}

// setupTestServices wires mock services into the command tree and
// returns a cleanup that restores the previous wiring.
func setupTestServices() func() {
	prev := Services{
		Extraction: extractionService,
		Index:      indexService,
		Catalog:    sourceCatalog,
		Fields:     fieldTable,
		Staging:    stagingStore,
		Config:     configStore,
		Fetcher:    contentFetcher,
	}

	pdfType := domain.SourceTypePDF
	SetServices(Services{
		Extraction: &mockExtractionService{record: testRecord()},
		Index: &mockIndexService{
			buildCount: 7,
			exists:     true,
			hits: []domain.UnitHit{
				{Unit: domain.Unit{Index: 12, Text: "Teckningsperioden löper från 1 mars"}, Similarity: 0.91},
			},
			units: []domain.Unit{
				{Index: 0, Text: "Inbjudan till teckning av units"},
				{Index: 1, Text: "", Image: &domain.PageImageRef{DocumentPath: "memo.pdf", Page: 2}},
			},
		},
		Catalog: &mockCatalog{docs: testDocuments()},
		Fields: &mockFieldTable{defs: []domain.FieldDefinition{
			{
				Field:               domain.FieldInvestors,
				Description:         "Subscription and guarantee commitments",
				SourceTypes:         []domain.SourceType{domain.SourceTypePDF, domain.SourceTypeHTML},
				IssueTypes:          []string{"rights_issue"},
				Queries:             []string{"teckningsåtaganden och garantiåtaganden"},
				PageStrategy:        domain.StrategyConsecutive,
				RequiresImage:       true,
				ListField:           true,
				AuthoritativeSource: &pdfType,
			},
		}},
		Staging: &mockStagingStore{entries: []domain.StagingEntry{
			{
				SourceURL: "memo.pdf",
				Field:     domain.FieldInvestors,
				IssueID:   "issue-42",
				Payload:   json.RawMessage(`{"investors":[]}`),
				Status:    domain.StagingStatusPending,
				UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		}},
		Config: &mockConfigStore{values: map[string]any{
			"embedding.model":        "text-embedding-3-small",
			"extraction.provider":    "gemini",
			"extraction.temperature": 0.1,
		}},
		Fetcher: &mockFetcher{content: []byte("%PDF-1.4")},
	})

	return func() { SetServices(prev) }
}

// errNotWired is used by tests that exercise the nil-service guards.
var errNotWired = errors.New("not wired")
