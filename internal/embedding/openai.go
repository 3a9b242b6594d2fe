package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/ragqa/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures an OpenAIBackend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is requested from text-embedding-3 models; other models use their native size.
	Dimensions  int
	BatchSize   int
	Concurrency int
	// RequestsPerSecond paces API calls; zero means unlimited.
	RequestsPerSecond float64
}

// OpenAIBackend uses the OpenAI embeddings API.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	dimensions  int
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

// NewOpenAIBackend creates an OpenAI backend. The API key is required.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	b := &OpenAIBackend{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
	if strings.HasPrefix(cfg.Model, "text-embedding-3") {
		b.dimensions = cfg.Dimensions
	}
	if cfg.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return b, nil
}

// Encode embeds texts in batches of BatchSize, up to Concurrency requests in flight.
func (e *OpenAIBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		offset, batch := start, texts[start:end]
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			resp, err := e.client.CreateEmbeddings(gctx, openai.EmbeddingRequest{
				Input:      batch,
				Model:      openai.EmbeddingModel(e.model),
				Dimensions: e.dimensions,
			})
			if err != nil {
				return fmt.Errorf("OpenAI API error: %w", err)
			}
			if len(resp.Data) != len(batch) {
				return fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(batch))
			}
			for _, d := range resp.Data {
				if d.Index < 0 || d.Index >= len(batch) {
					return fmt.Errorf("OpenAI returned embedding index %d out of range", d.Index)
				}
				v := make([]float32, len(d.Embedding))
				for i := range d.Embedding {
					v[i] = float32(d.Embedding[i])
				}
				utils.NormalizeL2(v)
				embeddings[offset+d.Index] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Close is a no-op; the HTTP client needs no teardown.
func (e *OpenAIBackend) Close() error { return nil }
