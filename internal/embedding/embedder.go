// Package embedding turns text into vectors through a lazily loaded backend
// (OpenAI, ONNX or a deterministic hash) with an LRU cache in front of it.
package embedding

import (
	"context"
	"errors"
)

// ErrBackend wraps every failure of the embedding backend: load errors, request
// errors, timeouts and malformed output.
var ErrBackend = errors.New("embedding backend error")

// Backend produces vector embeddings for text. Encode returns one vector per input
// text, in input order.
type Backend interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Loader constructs a Backend. It is called by Provider on first use.
type Loader func(ctx context.Context) (Backend, error)

// Static returns a Loader that always yields b.
func Static(b Backend) Loader {
	return func(context.Context) (Backend, error) { return b, nil }
}
