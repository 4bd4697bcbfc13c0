package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConfig is a minimal in-memory driven.ConfigStore.
type mockConfig struct {
	values map[string]any
}

func newMockConfig(values map[string]any) *mockConfig {
	if values == nil {
		values = make(map[string]any)
	}
	return &mockConfig{values: values}
}

func (m *mockConfig) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfig) GetString(key string) string {
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfig) GetInt(key string) int {
	if v, ok := m.values[key].(int); ok {
		return v
	}
	return 0
}

func (m *mockConfig) GetBool(key string) bool {
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return false
}

func (m *mockConfig) GetFloat(key string) float64 {
	if v, ok := m.values[key].(float64); ok {
		return v
	}
	return 0
}

func (m *mockConfig) GetStringSlice(key string) []string {
	if v, ok := m.values[key].([]string); ok {
		return v
	}
	return nil
}

func (m *mockConfig) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfig) Save() error  { return nil }
func (m *mockConfig) Load() error  { return nil }
func (m *mockConfig) Path() string { return "mock" }

func TestInitResult_Close(t *testing.T) {
	// Should not panic with no services
	result := &InitResult{}
	result.Close()
}

func TestCreateEmbeddingService_MissingAPIKey(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	_, err := CreateEmbeddingService(newMockConfig(nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvOpenAIKey)
}

func TestCreateEmbeddingService_FromConfig(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "test-key")

	cfg := newMockConfig(map[string]any{
		"embedding.model":      "text-embedding-3-large",
		"embedding.batch_size": 50,
	})

	svc, err := CreateEmbeddingService(cfg)

	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, "text-embedding-3-large", svc.ModelName())
	assert.Equal(t, 3072, svc.Dimensions())
}

func TestCreateEmbeddingService_Defaults(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "test-key")

	svc, err := CreateEmbeddingService(newMockConfig(nil))

	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, "text-embedding-3-small", svc.ModelName())
}

func TestCreateExtractor_OpenAI(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "test-key")

	cfg := newMockConfig(map[string]any{
		"extraction.provider": ProviderOpenAI,
	})

	extractor, err := CreateExtractor(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, extractor.SupportsImages())
	assert.Equal(t, "gpt-4o-mini", extractor.ModelName())
}

func TestCreateExtractor_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	cfg := newMockConfig(map[string]any{
		"extraction.provider": ProviderOpenAI,
	})

	_, err := CreateExtractor(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvOpenAIKey)
}

func TestCreateExtractor_DefaultsToGemini(t *testing.T) {
	t.Setenv(EnvGeminiKey, "")

	_, err := CreateExtractor(context.Background(), newMockConfig(nil))

	// No provider configured defaults to Gemini, which needs its key
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvGeminiKey)
}

func TestCreateExtractor_UnsupportedProvider(t *testing.T) {
	cfg := newMockConfig(map[string]any{
		"extraction.provider": "anthropic",
	})

	_, err := CreateExtractor(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extraction provider")
}
