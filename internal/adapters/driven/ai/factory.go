// Package ai provides factory functions for creating AI service adapters
// from configuration and environment secrets.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	openaiembed "github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/embedding/openai"
	geminillm "github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/llm/gemini"
	openaillm "github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/llm/openai"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Environment variables holding API keys. Keys live in the environment
// (or a .env file), never in config.toml.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
)

// Extraction providers selectable via the extraction.provider config key.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LoadEnv loads API keys from a .env file in the working directory.
// A missing file is not an error: keys may come from the process
// environment directly.
func LoadEnv() {
	_ = godotenv.Load()
}

// InitResult holds the constructed AI services and their cleanup.
type InitResult struct {
	Embedder  driven.EmbeddingService
	Extractor driven.Extractor

	closers []func() error
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	for _, c := range r.closers {
		_ = c()
	}
}

// Init creates and validates the embedding service and extractor from
// configuration. On any failure, services already created are closed.
func Init(ctx context.Context, cfg driven.ConfigStore) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := CreateExtractor(ctx, cfg)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	result := &InitResult{
		Embedder:  embedder,
		Extractor: extractor,
		closers:   []func() error{embedder.Close},
	}
	if closer, ok := extractor.(interface{ Close() error }); ok {
		result.closers = append(result.closers, closer.Close)
	}
	return result, nil
}

// CreateEmbeddingService creates the OpenAI embedding service from
// configuration. The API key is read from the environment.
func CreateEmbeddingService(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	apiKey := os.Getenv(EnvOpenAIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set (add it to the environment or a .env file)", EnvOpenAIKey)
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.GetString("embedding.base_url"),
		Model:             cfg.GetString("embedding.model"),
		Dimensions:        cfg.GetInt("embedding.dimensions"),
		BatchSize:         cfg.GetInt("embedding.batch_size"),
		RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
	})
}

// CreateAndValidateEmbeddingService creates the embedding service and
// validates connectivity before committing to an index build.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("embedding service unreachable: %w", err)
	}
	return svc, nil
}

// CreateExtractor creates the extraction backend selected by the
// extraction.provider config key. Gemini is the default: investor
// tables need vision, and Gemini is the only backend here that
// accepts page images.
func CreateExtractor(ctx context.Context, cfg driven.ConfigStore) (driven.Extractor, error) {
	provider := cfg.GetString("extraction.provider")
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		apiKey := os.Getenv(EnvGeminiKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set (add it to the environment or a .env file)", EnvGeminiKey)
		}
		return geminillm.NewExtractor(ctx, geminillm.Config{
			APIKey:            apiKey,
			Model:             cfg.GetString("extraction.model"),
			Temperature:       float32(cfg.GetFloat("extraction.temperature")),
			RequestsPerSecond: cfg.GetFloat("extraction.requests_per_second"),
		})

	case ProviderOpenAI:
		apiKey := os.Getenv(EnvOpenAIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set (add it to the environment or a .env file)", EnvOpenAIKey)
		}
		return openaillm.NewExtractor(openaillm.Config{
			APIKey:            apiKey,
			BaseURL:           cfg.GetString("extraction.base_url"),
			Model:             cfg.GetString("extraction.model"),
			RequestsPerSecond: cfg.GetFloat("extraction.requests_per_second"),
		})

	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", provider)
	}
}
