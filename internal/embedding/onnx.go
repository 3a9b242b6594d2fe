//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/ragqa/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

var errONNXClosed = errors.New("ONNX backend is closed")

// ONNXBackend runs a sentence-embedding model with ONNX Runtime. It requires CGO and
// the onnxruntime shared library. The model must take input_ids, attention_mask and
// token_type_ids and produce a pooled "output" of the configured dimensions.
type ONNXBackend struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	tokenizer  *HashTokenizer
	dimensions int

	// Bound to the session: Encode writes the inputs and reads output in place.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// NewONNXBackend loads the model at modelPath. The runtime environment is
// initialized on first use.
func NewONNXBackend(modelPath string, dimensions, maxTokens int) (*ONNXBackend, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("ONNX backend: dimensions must be positive, got %d", dimensions)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	b := &ONNXBackend{tokenizer: NewHashTokenizer(maxTokens), dimensions: dimensions}
	blank := b.tokenizer.Encode("")
	inputShape := ort.NewShape(1, int64(b.tokenizer.MaxTokens()))

	var err error
	if b.inputIDs, err = ort.NewTensor(inputShape, blank.InputIDs); err != nil {
		return nil, b.fail("input_ids tensor", err)
	}
	if b.attentionMask, err = ort.NewTensor(inputShape, blank.AttentionMask); err != nil {
		return nil, b.fail("attention_mask tensor", err)
	}
	if b.tokenTypeIDs, err = ort.NewTensor(inputShape, blank.TokenTypeIDs); err != nil {
		return nil, b.fail("token_type_ids tensor", err)
	}
	if b.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		return nil, b.fail("output tensor", err)
	}
	b.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{b.inputIDs, b.attentionMask, b.tokenTypeIDs},
		[]ort.ArbitraryTensor{b.output},
		nil,
	)
	if err != nil {
		return nil, b.fail("session for "+modelPath, err)
	}
	return b, nil
}

// fail releases whatever was allocated so far and wraps err.
func (e *ONNXBackend) fail(what string, err error) error {
	e.release()
	return fmt.Errorf("failed to create ONNX %s: %w", what, err)
}

// Encode runs the model once per text. The tensors are shared, so runs are serialized.
func (e *ONNXBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errONNXClosed
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		enc := e.tokenizer.Encode(text)
		copy(e.inputIDs.GetData(), enc.InputIDs)
		copy(e.attentionMask.GetData(), enc.AttentionMask)
		copy(e.tokenTypeIDs.GetData(), enc.TokenTypeIDs)
		if err := e.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed for text %d: %w", i, err)
		}
		vec := make([]float32, e.dimensions)
		copy(vec, e.output.GetData())
		utils.NormalizeL2(vec)
		out[i] = vec
	}
	return out, nil
}

// Close destroys the session and its tensors. Encode fails afterwards.
func (e *ONNXBackend) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.release()
}

func (e *ONNXBackend) release() error {
	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Destroy())
		e.session = nil
	}
	for _, t := range []**ort.Tensor[int64]{&e.inputIDs, &e.attentionMask, &e.tokenTypeIDs} {
		if *t != nil {
			errs = append(errs, (*t).Destroy())
			*t = nil
		}
	}
	if e.output != nil {
		errs = append(errs, e.output.Destroy())
		e.output = nil
	}
	return errors.Join(errs...)
}
