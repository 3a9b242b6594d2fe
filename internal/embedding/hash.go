package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/ragqa/pkg/utils"
)

// HashBackend is a deterministic backend that needs no model or network. It returns
// a fixed-dimension vector derived from the text hash so that the same text always
// gets the same embedding. Useful for tests and offline runs; it carries no semantics.
type HashBackend struct {
	dimensions int
}

// NewHashBackend returns a backend that produces deterministic embeddings of the given dimensions.
func NewHashBackend(dimensions int) *HashBackend {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashBackend{dimensions: dimensions}
}

func (e *HashBackend) embed(text string) []float32 {
	seed := float64(textHash(text) % (1 << 31))
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

// Encode returns one deterministic embedding per text.
func (e *HashBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embed(text)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashBackend) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashBackend.
func (e *HashBackend) Close() error {
	return nil
}
