//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("ONNX backend requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXBackend is unavailable without CGO. Use the openai or hash backend instead.
type ONNXBackend struct{}

// NewONNXBackend always fails without CGO.
func NewONNXBackend(string, int, int) (*ONNXBackend, error) {
	return nil, errONNXUnavailable
}

// Encode always fails.
func (e *ONNXBackend) Encode(context.Context, []string) ([][]float32, error) {
	return nil, errONNXUnavailable
}

// Close is a no-op.
func (e *ONNXBackend) Close() error { return nil }
