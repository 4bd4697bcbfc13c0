// Package gemini provides a structured-output extractor using the
// Gemini API, with vision support for rendered PDF pages.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/llm"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultModel = "gemini-2.0-flash"

	// DefaultTemperature is kept low: extraction wants the stated
	// values, not creative paraphrase.
	DefaultTemperature = 0.1

	// DefaultRequestsPerSecond keeps sustained usage under the free
	// tier's per-minute quota.
	DefaultRequestsPerSecond = 0.5
	DefaultBurstSize         = 2
)

// Config holds configuration for the Gemini extractor.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the generation model to use (default: gemini-2.0-flash).
	Model string

	// Temperature overrides the default sampling temperature.
	Temperature float32

	// RequestsPerSecond is the sustained request rate (default: 0.5).
	RequestsPerSecond float64
}

// Extractor invokes Gemini over text and page-image evidence and
// returns the raw JSON payload for schema validation by the caller.
type Extractor struct {
	client      *genai.Client
	model       string
	temperature float32
	limiter     *rate.Limiter
}

// NewExtractor creates a Gemini extractor.
func NewExtractor(ctx context.Context, cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Extractor{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), DefaultBurstSize),
	}, nil
}

// Extract performs the model call. Page images, when present, are sent
// alongside the text so table layouts survive; the JSON response mime
// type keeps the output machine-readable.
func (e *Extractor) Extract(ctx context.Context, req driven.ExtractionRequest) (json.RawMessage, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := e.client.GenerativeModel(e.model)
	model.SetTemperature(e.temperature)
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{
		genai.Text(req.Prompt),
		genai.Text(llm.BuildEvidence(req.Units, req.SourceType)),
	}
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData("png", img))
	}
	logger.Debug("Gemini extract %s: %d units, %d images", req.Field, len(req.Units), len(req.Images))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	payload := json.RawMessage(llm.CleanJSON(text))
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: field %s: response is not valid JSON", domain.ErrSchemaValidation, req.Field)
	}
	return payload, nil
}

// ModelName returns the extraction model identifier.
func (e *Extractor) ModelName() string {
	return e.model
}

// SupportsImages reports that Gemini accepts image evidence.
func (e *Extractor) SupportsImages() bool {
	return true
}

// Close releases the underlying client.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", errors.New("gemini: response contained no text")
	}
	return out, nil
}

// classifyError maps an API failure to the retry taxonomy.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return domain.NewTransientError("extract", err)
		}
		return domain.NewFatalError("extract", err)
	}
	// Network level failures are worth retrying.
	return domain.NewTransientError("extract", err)
}
