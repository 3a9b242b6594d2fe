package answer

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/ragqa/internal/config"
	"go.uber.org/zap"
)

// unavailableCompleter fails every request with the reason the backend could not be built.
type unavailableCompleter struct{ err error }

func (u unavailableCompleter) Complete(context.Context, Request) (string, error) {
	return "", u.err
}

// NewGeneratorFromConfig builds a Generator backed by the OpenAI chat API. A missing
// API key does not fail construction: every answer then reports the problem instead.
func NewGeneratorFromConfig(cfg config.GenerationConfig, logger *zap.Logger) *Generator {
	var completer Completer
	c, err := NewOpenAICompleter(os.Getenv(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model)
	if err != nil {
		if logger != nil {
			logger.Warn("language model unavailable", zap.String("api_key_env", cfg.APIKeyEnv), zap.Error(err))
		}
		completer = unavailableCompleter{err: fmt.Errorf("language model unavailable: %w", err)}
	} else {
		completer = c
	}
	return NewGenerator(completer,
		WithMaxTokens(cfg.MaxTokens),
		WithTemperature(cfg.Temperature),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	)
}
