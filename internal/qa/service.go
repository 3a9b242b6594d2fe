// Package qa answers questions over ingested documents.
package qa

import (
	"context"
	"time"

	"github.com/hyperjump/ragqa/internal/answer"
	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

// BlankQuestionAnswer is the reply to an empty or whitespace-only question.
const BlankQuestionAnswer = "Please enter a question!"

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]string, error)
}

// Generator turns a question and its chunks into an answer.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []string) string
}

// Service wires retrieval to answer generation.
type Service struct {
	retriever Retriever
	generator Generator
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for question handling.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service over retriever and generator.
func NewService(retriever Retriever, generator Generator, opts ...Option) *Service {
	s := &Service{retriever: retriever, generator: generator}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Ask answers question. It never fails; problems are reported in the answer text.
func (s *Service) Ask(ctx context.Context, question string) string {
	question = utils.CollapseSpace(question)
	if question == "" {
		return BlankQuestionAnswer
	}
	start := time.Now()
	chunks, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.String("question", utils.Truncate(question, 80)), zap.Error(err))
		return answer.ErrorAnswer(err)
	}
	a := s.generator.Generate(ctx, question, chunks)
	s.logger.Debug("question answered",
		zap.String("question", utils.Truncate(question, 80)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return a
}
