package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records how many texts it was asked to encode.
type countingBackend struct {
	inner  Backend
	calls  atomic.Int32
	texts  atomic.Int32
	closed atomic.Bool
}

func (b *countingBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	b.calls.Add(1)
	b.texts.Add(int32(len(texts)))
	return b.inner.Encode(ctx, texts)
}

func (b *countingBackend) Close() error {
	b.closed.Store(true)
	return nil
}

type funcBackend func(ctx context.Context, texts []string) ([][]float32, error)

func (f funcBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

func (f funcBackend) Close() error { return nil }

func TestProvider_lazyLoadOnce(t *testing.T) {
	var loads atomic.Int32
	backend := &countingBackend{inner: NewHashBackend(8)}
	p := NewProvider(func(context.Context) (Backend, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return backend, nil
	})
	assert.False(t, p.Loaded())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.EmbedOne(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, p.Loaded())
}

func TestProvider_loadFailureRetried(t *testing.T) {
	var loads atomic.Int32
	p := NewProvider(func(context.Context) (Backend, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return NewHashBackend(4), nil
	})

	_, err := p.EmbedOne(context.Background(), "x")
	require.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "model file missing")
	assert.False(t, p.Loaded())

	v, err := p.EmbedOne(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Equal(t, int32(2), loads.Load())
}

func TestProvider_Embed(t *testing.T) {
	p := NewProvider(Static(NewHashBackend(16)))
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 16)
	}
	assert.Equal(t, vecs[0], vecs[2])
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestProvider_EmbedEmpty(t *testing.T) {
	var loads atomic.Int32
	p := NewProvider(func(context.Context) (Backend, error) {
		loads.Add(1)
		return NewHashBackend(4), nil
	})
	vecs, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Equal(t, int32(0), loads.Load())
}

func TestProvider_cache(t *testing.T) {
	backend := &countingBackend{inner: NewHashBackend(4)}
	p := NewProvider(Static(backend), WithCache(10))
	ctx := context.Background()

	_, err := p.Embed(ctx, []string{"one", "two"})
	require.NoError(t, err)
	_, err = p.Embed(ctx, []string{"two", "three"})
	require.NoError(t, err)
	_, err = p.Embed(ctx, []string{"one", "three"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, int32(3), backend.texts.Load())
}

func TestProvider_timeout(t *testing.T) {
	slow := funcBackend(func(ctx context.Context, texts []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, errors.New("request aborted")
	})
	p := NewProvider(Static(slow), WithTimeout(20*time.Millisecond))

	_, err := p.EmbedOne(context.Background(), "x")
	require.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProvider_invalidOutput(t *testing.T) {
	tests := []struct {
		name string
		out  [][]float32
	}{
		{"too few vectors", [][]float32{{1, 2}}},
		{"ragged dimensions", [][]float32{{1, 2}, {1, 2, 3}}},
		{"empty vectors", [][]float32{{}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := funcBackend(func(context.Context, []string) ([][]float32, error) { return tt.out, nil })
			p := NewProvider(Static(b))
			_, err := p.Embed(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, ErrBackend)
		})
	}
}

func TestProvider_backendError(t *testing.T) {
	b := funcBackend(func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	})
	p := NewProvider(Static(b))
	_, err := p.EmbedOne(context.Background(), "x")
	require.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestProvider_Close(t *testing.T) {
	backend := &countingBackend{inner: NewHashBackend(4)}
	p := NewProvider(Static(backend))
	require.NoError(t, p.Close())
	assert.False(t, backend.closed.Load(), "unloaded backend must not be closed")

	_, err := p.EmbedOne(context.Background(), "x")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.True(t, backend.closed.Load())
}

func TestHashBackend_deterministic(t *testing.T) {
	b := NewHashBackend(32)
	ctx := context.Background()
	v1, err := b.Encode(ctx, []string{"Paris is the capital of France."})
	require.NoError(t, err)
	v2, err := b.Encode(ctx, []string{"Paris is the capital of France."})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	var norm float32
	for _, x := range v1[0] {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
	assert.Equal(t, 32, b.Dimensions())
}
