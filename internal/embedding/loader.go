package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/ragqa/internal/config"
)

// NewLoader returns a Loader for the backend named in cfg. Nothing is contacted or
// loaded until the Loader runs.
func NewLoader(cfg config.EmbeddingConfig) (Loader, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return func(context.Context) (Backend, error) {
			return NewOpenAIBackend(OpenAIConfig{
				APIKey:            os.Getenv(cfg.APIKeyEnv),
				BaseURL:           cfg.BaseURL,
				Model:             cfg.Model,
				Dimensions:        cfg.Dimensions,
				BatchSize:         cfg.BatchSize,
				Concurrency:       cfg.Concurrency,
				RequestsPerSecond: cfg.RequestsPerSecond,
			})
		}, nil
	case config.BackendONNX:
		return func(context.Context) (Backend, error) {
			return NewONNXBackend(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		}, nil
	case config.BackendHash:
		return Static(NewHashBackend(cfg.Dimensions)), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// NewProviderFromConfig builds a Provider for cfg with its cache and timeout applied.
func NewProviderFromConfig(cfg config.EmbeddingConfig, opts ...ProviderOption) (*Provider, error) {
	loader, err := NewLoader(cfg)
	if err != nil {
		return nil, err
	}
	base := []ProviderOption{WithCache(cfg.CacheSize)}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	return NewProvider(loader, append(base, opts...)...), nil
}
