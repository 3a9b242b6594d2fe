package answer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	calls  atomic.Int32
	last   Request
	answer string
	err    error
	block  bool
}

func (s *stubCompleter) Complete(ctx context.Context, req Request) (string, error) {
	s.calls.Add(1)
	s.last = req
	if s.block {
		<-ctx.Done()
		return "", errors.New("request aborted")
	}
	return s.answer, s.err
}

func TestGenerate_noContext(t *testing.T) {
	c := &stubCompleter{answer: "should not be used"}
	g := NewGenerator(c)
	assert.Equal(t, FallbackAnswer, g.Generate(context.Background(), "What is the capital of France?", nil))
	assert.Equal(t, FallbackAnswer, g.Generate(context.Background(), "q", []string{}))
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestGenerate_groundedPrompt(t *testing.T) {
	c := &stubCompleter{answer: "  Paris.\n"}
	g := NewGenerator(c, WithMaxTokens(123), WithTemperature(0.2))

	got := g.Generate(context.Background(), "What is the capital of France?", []string{"Paris is the capital of France.", "France is in Europe."})
	assert.Equal(t, "Paris.", got)
	require.Equal(t, int32(1), c.calls.Load())

	assert.Equal(t, SystemPrompt, c.last.System)
	assert.Equal(t, 123, c.last.MaxTokens)
	assert.Equal(t, float32(0.2), c.last.Temperature)
	assert.Equal(t, "Based on the following context, please answer the question accurately and concisely.\n\n"+
		"Context:\nParis is the capital of France.\n\nFrance is in Europe.\n\n"+
		"Question: What is the capital of France?\n\nAnswer:", c.last.Prompt)
}

func TestGenerate_defaults(t *testing.T) {
	c := &stubCompleter{answer: "ok"}
	g := NewGenerator(c)
	g.Generate(context.Background(), "q", []string{"ctx"})
	assert.Equal(t, DefaultMaxTokens, c.last.MaxTokens)
	assert.Equal(t, float32(DefaultTemperature), c.last.Temperature)
}

func TestGenerate_backendError(t *testing.T) {
	c := &stubCompleter{err: errors.New("rate limited")}
	g := NewGenerator(c)
	got := g.Generate(context.Background(), "q", []string{"ctx"})
	assert.Equal(t, "Sorry, I encountered an error generating the answer: rate limited", got)
}

func TestGenerate_emptyAnswer(t *testing.T) {
	c := &stubCompleter{answer: "   "}
	g := NewGenerator(c)
	got := g.Generate(context.Background(), "q", []string{"ctx"})
	assert.True(t, strings.HasPrefix(got, errorAnswerPrefix), got)
}

func TestGenerate_timeout(t *testing.T) {
	c := &stubCompleter{block: true}
	g := NewGenerator(c, WithTimeout(20*time.Millisecond))
	got := g.Generate(context.Background(), "q", []string{"ctx"})
	assert.True(t, strings.HasPrefix(got, errorAnswerPrefix), got)
	assert.Contains(t, got, context.DeadlineExceeded.Error())
}

func TestErrorAnswer(t *testing.T) {
	assert.Equal(t, "Sorry, I encountered an error generating the answer: boom", ErrorAnswer(errors.New("boom")))
}
