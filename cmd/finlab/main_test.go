package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/ai"
	configfile "github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/config/file"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/storage/sqlite"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int { return 2 }

func (stubEmbedder) ModelName() string { return "stub-embed" }

func (stubEmbedder) Ping(_ context.Context) error { return nil }

func (stubEmbedder) Close() error { return nil }

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _ driven.ExtractionRequest) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (stubExtractor) ModelName() string { return "stub-llm" }

func (stubExtractor) SupportsImages() bool { return false }

func testWiringDeps(t *testing.T) (driven.ConfigStore, *sqlite.Store, driven.StagingStore, driven.FieldTable, driven.PromptStore) {
	t.Helper()

	cfg, err := configfile.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	staging, err := openStagingStore(cfg, store)
	require.NoError(t, err)

	fieldTable, err := configfile.DefaultFieldTable()
	require.NoError(t, err)

	prompts, err := configfile.NewPromptStore(t.TempDir())
	require.NoError(t, err)

	return cfg, store, staging, fieldTable, prompts
}

func TestWireServices_WithoutAI(t *testing.T) {
	cfg, store, staging, fieldTable, prompts := testWiringDeps(t)

	svcs := wireServices(cfg, store, staging, fieldTable, prompts, nil)

	assert.NotNil(t, svcs.Catalog)
	assert.NotNil(t, svcs.Fields)
	assert.NotNil(t, svcs.Staging)
	assert.NotNil(t, svcs.Config)
	assert.NotNil(t, svcs.Fetcher)
	assert.Nil(t, svcs.Extraction)
	assert.Nil(t, svcs.Index)
}

func TestWireServices_WithAI(t *testing.T) {
	cfg, store, staging, fieldTable, prompts := testWiringDeps(t)

	aiRes := &ai.InitResult{
		Embedder:  stubEmbedder{},
		Extractor: stubExtractor{},
	}
	svcs := wireServices(cfg, store, staging, fieldTable, prompts, aiRes)

	assert.NotNil(t, svcs.Extraction)
	assert.NotNil(t, svcs.Index)
	assert.NotNil(t, svcs.Catalog)
	assert.NotNil(t, svcs.Fetcher)
}

func TestOpenStagingStore_DefaultsToSqlite(t *testing.T) {
	cfg, store, _, _, _ := testWiringDeps(t)

	staging, err := openStagingStore(cfg, store)

	require.NoError(t, err)
	assert.NotNil(t, staging)
}
