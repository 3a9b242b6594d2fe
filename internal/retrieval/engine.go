// Package retrieval ingests documents into an append-only vector index and
// retrieves the chunks closest to a question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/vector"
	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultTopK is the number of chunks Retrieve returns.
const DefaultTopK = 3

var (
	// ErrEmptyContent is returned when a document yields no text or no chunks.
	ErrEmptyContent = errors.New("document has no text content")
	// ErrInvalidK is returned by RetrieveK for k <= 0.
	ErrInvalidK = errors.New("k must be positive")
)

// Chunker splits extracted text into chunk texts.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder turns texts into vectors of one shared length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Source is a document to ingest: either a file Path or a Reader. Format may be
// left unknown for paths, in which case it is taken from the extension.
type Source struct {
	Path   string
	Reader io.Reader
	Format extract.Format
	// Name identifies the document in logs; defaults to the base name of Path.
	Name string
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "<reader>"
}

// IngestResult describes the outcome of one ingestion. It is returned even when
// ingestion is rejected so callers can see the stage reached and any extraction issues.
type IngestResult struct {
	Stage  Stage
	Chunks int
	Issues []extract.Issue
}

// Passage is a retrieved chunk with its position in the store and its distance to the query.
type Passage struct {
	Ordinal  int
	Text     string
	Distance float32
}

// Stats is a snapshot of the engine's store.
type Stats struct {
	Chunks     int
	Vectors    int
	Dimensions int
	IndexType  string
}

// Engine owns the chunk store and vector index. Vector i always belongs to chunk i.
// Ingestions run one at a time; queries run concurrently with each other and with
// the slow stages of an ingestion.
type Engine struct {
	extractor *extract.Extractor
	chunker   Chunker
	embedder  Embedder
	indexType string
	topK      int
	logger    *zap.Logger

	writer *semaphore.Weighted

	mu     sync.RWMutex // guards index and chunks
	index  vector.Index
	chunks []string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIndexType selects the vector index implementation ("memory" or "faiss").
func WithIndexType(t string) EngineOption {
	return func(e *Engine) { e.indexType = t }
}

// WithTopK sets the number of chunks Retrieve returns.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with an empty store. The vector index is created on
// the first successful ingestion, sized by the first embedding.
func NewEngine(extractor *extract.Extractor, chunker Chunker, embedder Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		indexType: string(vector.IndexTypeMemory),
		topK:      DefaultTopK,
		writer:    semaphore.NewWeighted(1),
		chunks:    make([]string, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Ingest extracts, chunks, embeds and indexes one document. On success every chunk
// is searchable; on failure nothing is added.
func (e *Engine) Ingest(ctx context.Context, src Source) (*IngestResult, error) {
	res := &IngestResult{Stage: StageReceived}
	name := src.name()
	log := e.logger.With(zap.String("document", name))

	if err := e.writer.Acquire(ctx, 1); err != nil {
		return e.reject(log, res, err)
	}
	defer e.writer.Release(1)

	start := time.Now()
	text, err := e.extract(src, res)
	if err != nil {
		return e.reject(log, res, err)
	}
	for _, issue := range res.Issues {
		log.Warn("extraction issue", zap.String("issue", issue.String()))
	}
	if strings.TrimSpace(text) == "" {
		return e.reject(log, res, ErrEmptyContent)
	}
	res.Stage = StageExtracted
	log.Debug("ingest stage", zap.Stringer("stage", res.Stage), zap.Int("chars", len(text)))

	chunks := e.chunker.Chunk(text)
	if len(chunks) == 0 {
		return e.reject(log, res, ErrEmptyContent)
	}
	res.Stage = StageChunked
	res.Chunks = len(chunks)
	log.Debug("ingest stage", zap.Stringer("stage", res.Stage), zap.Int("chunks", len(chunks)))

	vectors, err := e.embedder.Embed(ctx, chunks)
	if err != nil {
		return e.reject(log, res, err)
	}
	if len(vectors) != len(chunks) {
		return e.reject(log, res, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	res.Stage = StageEmbedded
	log.Debug("ingest stage", zap.Stringer("stage", res.Stage), zap.Int("dimensions", len(vectors[0])))

	if err := e.append(ctx, chunks, vectors); err != nil {
		return e.reject(log, res, err)
	}
	res.Stage = StageIndexed
	log.Debug("ingest stage", zap.Stringer("stage", res.Stage), zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *Engine) extract(src Source, res *IngestResult) (string, error) {
	format := src.Format
	if format == extract.FormatUnknown {
		if src.Path == "" {
			return "", fmt.Errorf("%w: no format given for %s", extract.ErrUnsupportedFormat, src.name())
		}
		f, err := extract.FormatFromPath(src.Path)
		if err != nil {
			return "", err
		}
		format = f
	}

	r := src.Reader
	if r == nil {
		if src.Path == "" {
			return "", errors.New("source has neither path nor reader")
		}
		f, err := os.Open(src.Path)
		if err != nil {
			return "", fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	out, err := e.extractor.ExtractReader(r, format)
	if err != nil {
		return "", err
	}
	res.Issues = out.Issues
	return out.Text, nil
}

// append inserts vectors and chunks as one step under the write lock.
func (e *Engine) append(ctx context.Context, chunks []string, vectors [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.index
	if idx == nil {
		created, err := vector.NewIndex(e.indexType, len(vectors[0]))
		if err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
		idx = created
	}
	if err := idx.Insert(ctx, vectors); err != nil {
		if e.index == nil {
			_ = idx.Close()
		}
		return err
	}
	e.index = idx
	e.chunks = append(e.chunks, chunks...)
	return nil
}

func (e *Engine) reject(log *zap.Logger, res *IngestResult, err error) (*IngestResult, error) {
	log.Info("ingestion rejected", zap.Stringer("stage", res.Stage), zap.Error(err))
	res.Stage = StageRejected
	return res, err
}

// Retrieve returns the texts of the configured number of chunks closest to question.
func (e *Engine) Retrieve(ctx context.Context, question string) ([]string, error) {
	return e.RetrieveK(ctx, question, e.topK)
}

// RetrieveK returns the texts of up to k chunks closest to question, nearest first.
// An empty store yields an empty result without calling the embedder.
func (e *Engine) RetrieveK(ctx context.Context, question string, k int) ([]string, error) {
	passages, err := e.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return texts, nil
}

// Search is RetrieveK with ordinals and distances.
func (e *Engine) Search(ctx context.Context, question string, k int) ([]Passage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if e.empty() {
		return []Passage{}, nil
	}
	query, err := e.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return []Passage{}, nil
	}
	neighbors, err := e.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	passages := make([]Passage, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Ordinal < 0 || n.Ordinal >= len(e.chunks) {
			continue
		}
		passages = append(passages, Passage{Ordinal: n.Ordinal, Text: e.chunks[n.Ordinal], Distance: n.Distance})
	}
	return passages, nil
}

func (e *Engine) empty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index == nil || e.index.Count() == 0
}

// TopK returns the number of chunks Retrieve returns.
func (e *Engine) TopK() int { return e.topK }

// Stats returns the current store size and index shape.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{Chunks: len(e.chunks), IndexType: e.indexType}
	if e.index != nil {
		s.Vectors = e.index.Count()
		s.Dimensions = e.index.Dimensions()
		s.IndexType = e.index.Type()
	}
	return s
}

// Close releases the vector index. The engine must not be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}
