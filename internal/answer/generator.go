// Package answer produces grounded answers from retrieved context using a language model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

const (
	// FallbackAnswer is returned, without calling the model, when there is no context.
	FallbackAnswer = "I don't have enough information to answer your question. Please upload relevant documents first."

	// SystemPrompt instructs the model to stay within the supplied context.
	SystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
		"If the context doesn't contain relevant information, say so."

	errorAnswerPrefix = "Sorry, I encountered an error generating the answer: "

	// DefaultTimeout bounds one completion when the caller's context has no deadline.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxTokens caps the length of an answer.
	DefaultMaxTokens = 500
	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7
)

var errEmptyCompletion = errors.New("the model returned an empty answer")

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer is a language model backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Generator turns a question and its retrieved chunks into an answer.
type Generator struct {
	completer   Completer
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMaxTokens caps the answer length.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GeneratorOption {
	return func(g *Generator) { g.temperature = t }
}

// WithTimeout bounds each completion. Zero or negative disables the bound.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithLogger sets a logger for backend failures.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator returns a Generator backed by completer.
func NewGenerator(completer Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer:   completer,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// BuildPrompt renders the grounded prompt for question over chunks.
func BuildPrompt(question string, chunks []string) string {
	return "Based on the following context, please answer the question accurately and concisely.\n\n" +
		"Context:\n" + strings.Join(chunks, "\n\n") + "\n\n" +
		"Question: " + question + "\n\n" +
		"Answer:"
}

// ErrorAnswer renders err as an answer that is safe to show to a user.
func ErrorAnswer(err error) string {
	return errorAnswerPrefix + err.Error()
}

// Generate answers question from chunks. It never fails: with no chunks it returns
// FallbackAnswer, and backend failures are rendered with ErrorAnswer.
func (g *Generator) Generate(ctx context.Context, question string, chunks []string) string {
	if len(chunks) == 0 {
		return FallbackAnswer
	}
	if _, ok := ctx.Deadline(); !ok && g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	answer, err := g.completer.Complete(ctx, Request{
		System:      SystemPrompt,
		Prompt:      BuildPrompt(question, chunks),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err == nil {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			err = errEmptyCompletion
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		g.logger.Warn("answer generation failed", zap.Error(err))
		return ErrorAnswer(err)
	}
	return answer
}
