package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// NewEmbedder builds the configured embedder wrapped in an LRU cache.
// Supported providers: "onnx" (default), "openai", "ollama", "mock".
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "onnx", "":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case "openai":
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     config.Secret(cfg.APIKeyEnv),
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
	case "ollama":
		e, err = NewOllamaEmbedder(ctx, cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, ollama, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithCache(e, cfg.CacheSize), nil
}
