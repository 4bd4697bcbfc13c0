// Package openai provides a text-only structured-output extractor
// using OpenAI-compatible chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/llm"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	// DefaultRequestsPerSecond keeps sustained usage well under the
	// API's rate limits.
	DefaultRequestsPerSecond = 2.0
	DefaultBurstSize         = 4
)

// Config holds configuration for the OpenAI extractor.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate (default: 2).
	RequestsPerSecond float64
}

// Extractor invokes an OpenAI-compatible chat completion API over text
// evidence. It accepts no images; routing falls back to it when vision
// extraction is unavailable.
type Extractor struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	limiter *rate.Limiter
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

// responseFormat requests JSON-mode output.
type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewExtractor creates a new OpenAI extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Extractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), DefaultBurstSize),
	}, nil
}

// Extract performs the chat completion call and returns the raw JSON
// payload for schema validation by the caller.
func (e *Extractor) Extract(ctx context.Context, req driven.ExtractionRequest) (json.RawMessage, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := chatCompletionRequest{
		Model: e.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: req.Prompt},
			{Role: "user", Content: llm.BuildEvidence(req.Units, req.SourceType)},
		},
		Temperature:    0.1,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransientError("extract", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransientError("extract", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, domain.NewFatalError("extract", fmt.Errorf("openai error: %s", chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	logger.Debug("OpenAI extract %s: %d tokens", req.Field, chatResp.Usage.TotalTokens)

	payload := json.RawMessage(llm.CleanJSON(chatResp.Choices[0].Message.Content))
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: field %s: response is not valid JSON", domain.ErrSchemaValidation, req.Field)
	}
	return payload, nil
}

// ModelName returns the extraction model identifier.
func (e *Extractor) ModelName() string {
	return e.model
}

// SupportsImages reports that this backend accepts text only.
func (e *Extractor) SupportsImages() bool {
	return false
}

// classifyStatus maps an HTTP failure to the retry taxonomy.
func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("openai error (status %d): %s", status, string(body))
	if status == http.StatusTooManyRequests || status >= 500 {
		return domain.NewTransientError("extract", err)
	}
	return domain.NewFatalError("extract", err)
}
