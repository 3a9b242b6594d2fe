package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single Embed call when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Provider embeds text through a Backend that is loaded on first use.
// It is safe for concurrent use.
type Provider struct {
	loader  Loader
	timeout time.Duration
	cache   *EmbeddingCache
	logger  *zap.Logger

	mu      sync.Mutex // guards backend; held while loading
	backend Backend
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithTimeout sets the per-call timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) { p.timeout = d }
}

// WithCache enables an LRU cache of the given capacity keyed by text.
func WithCache(capacity int) ProviderOption {
	return func(p *Provider) {
		if capacity > 0 {
			p.cache = NewEmbeddingCache(capacity)
		}
	}
}

// WithLogger sets a logger for backend load events.
func WithLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// NewProvider returns a Provider that calls loader the first time an embedding is requested.
func NewProvider(loader Loader, opts ...ProviderOption) *Provider {
	p := &Provider{
		loader:  loader,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// load returns the backend, initializing it exactly once. A failed load is not
// remembered: the next call tries again.
func (p *Provider) load(ctx context.Context) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil {
		return p.backend, nil
	}
	start := time.Now()
	b, err := p.loader(ctx)
	if err != nil {
		p.logger.Warn("embedding backend load failed", zap.Error(err))
		return nil, fmt.Errorf("%w: load: %w", ErrBackend, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: loader returned no backend", ErrBackend)
	}
	p.logger.Debug("embedding backend loaded", zap.Duration("elapsed", time.Since(start)))
	p.backend = b
	return b, nil
}

// Loaded reports whether the backend has been initialized.
func (p *Provider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend != nil
}

// Embed returns one vector per text. All vectors share the same non-zero length.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	backend, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if p.cache != nil {
			if v, ok := p.cache.Get(text); ok {
				out[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		batch := make([]string, len(missing))
		for j, i := range missing {
			batch[j] = texts[i]
		}
		vecs, err := backend.Encode(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrBackend, ctxErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrBackend, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBackend, len(vecs), len(batch))
		}
		for j, i := range missing {
			out[i] = vecs[j]
		}
	}

	dims := len(out[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrBackend)
	}
	for i, v := range out {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrBackend, i, len(v), dims)
		}
	}
	if p.cache != nil {
		for _, i := range missing {
			p.cache.Set(texts[i], out[i])
		}
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (p *Provider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Close releases the backend if it was loaded.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		return nil
	}
	err := p.backend.Close()
	p.backend = nil
	return err
}
