package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

func extractionRequest() driven.ExtractionRequest {
	return driven.ExtractionRequest{
		Field:      domain.FieldInvestors,
		Prompt:     "Extract investors.",
		Units:      []domain.Unit{{Index: 2, Text: "Alfa Fonder subscribes for 1 500 000 units"}},
		SourceType: domain.SourceTypePDF,
	}
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e, err := NewExtractor(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return e
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestExtract_ReturnsPayload(t *testing.T) {
	var gotReq chatCompletionRequest
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, completionResponse(`{"investors":[]}`))
	})

	payload, err := e.Extract(context.Background(), extractionRequest())

	require.NoError(t, err)
	assert.JSONEq(t, `{"investors":[]}`, string(payload))
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "--- Page 3 ---")
}

func TestExtract_StripsMarkdownFences(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionResponse("```json\n{\"a\":1}\n```"))
	})

	payload, err := e.Extract(context.Background(), extractionRequest())

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(payload))
}

func TestExtract_InvalidJSONRejected(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionResponse("the investors are Alfa and Beta"))
	})

	_, err := e.Extract(context.Background(), extractionRequest())

	require.ErrorIs(t, err, domain.ErrSchemaValidation)
}

func TestExtract_ServerErrorIsTransient(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := e.Extract(context.Background(), extractionRequest())

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestExtract_BadRequestIsFatal(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := e.Extract(context.Background(), extractionRequest())

	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}

func TestExtractor_SupportsImages(t *testing.T) {
	e, err := NewExtractor(Config{APIKey: "k"})

	require.NoError(t, err)
	assert.False(t, e.SupportsImages())
	assert.Equal(t, DefaultModel, e.ModelName())
}

func TestExtract_RateLimiterHonoursCancelledContext(t *testing.T) {
	var calls int
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, completionResponse(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, extractionRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "no request once the context is gone")
}

func TestNewExtractor_DefaultRequestRate(t *testing.T) {
	e, err := NewExtractor(Config{APIKey: "test-key"})

	require.NoError(t, err)
	assert.InDelta(t, DefaultRequestsPerSecond, float64(e.limiter.Limit()), 0.0001)
}
