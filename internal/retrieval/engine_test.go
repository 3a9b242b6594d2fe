package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/ragqa/internal/embedding"
	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineChunker makes every non-blank line a chunk.
type lineChunker struct{}

func (lineChunker) Chunk(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// stubEmbedder delegates to a hash provider and counts calls. A non-nil err fails every call.
type stubEmbedder struct {
	provider *embedding.Provider
	calls    atomic.Int32
	err      error
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{provider: embedding.NewProvider(embedding.Static(embedding.NewHashBackend(dims)))}
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.provider.Embed(ctx, texts)
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func newTestEngine(t *testing.T, emb Embedder, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(extract.NewExtractor(), lineChunker{}, emb, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func textSource(name, body string) Source {
	return Source{Reader: strings.NewReader(body), Format: extract.FormatText, Name: name}
}

func TestEngine_IngestAndRetrieve(t *testing.T) {
	emb := newStubEmbedder(16)
	e := newTestEngine(t, emb)
	ctx := context.Background()

	res, err := e.Ingest(ctx, textSource("geo.txt", "Paris is the capital of France.\nBerlin is the capital of Germany.\nRome is the capital of Italy."))
	require.NoError(t, err)
	assert.Equal(t, StageIndexed, res.Stage)
	assert.Equal(t, 3, res.Chunks)

	got, err := e.RetrieveK(ctx, "Berlin is the capital of Germany.", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Berlin is the capital of Germany."}, got)

	stats := e.Stats()
	assert.Equal(t, Stats{Chunks: 3, Vectors: 3, Dimensions: 16, IndexType: "memory"}, stats)
}

func TestEngine_RetrieveDefaultK(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))
	ctx := context.Background()
	_, err := e.Ingest(ctx, textSource("a.txt", "one\ntwo\nthree\nfour\nfive"))
	require.NoError(t, err)

	got, err := e.Retrieve(ctx, "two")
	require.NoError(t, err)
	assert.Len(t, got, DefaultTopK)
	assert.Equal(t, "two", got[0])

	got, err = e.RetrieveK(ctx, "two", 50)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	e2 := newTestEngine(t, newStubEmbedder(8), WithTopK(1))
	_, err = e2.Ingest(ctx, textSource("a.txt", "one\ntwo"))
	require.NoError(t, err)
	got, err = e2.Retrieve(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got)
}

func TestEngine_RetrieveEmptyStore(t *testing.T) {
	emb := newStubEmbedder(8)
	e := newTestEngine(t, emb)

	got, err := e.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), emb.calls.Load(), "no embedding call on an empty store")
}

func TestEngine_RetrieveInvalidK(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))
	for _, k := range []int{0, -1} {
		_, err := e.RetrieveK(context.Background(), "q", k)
		assert.ErrorIs(t, err, ErrInvalidK)
	}
}

func TestEngine_IngestEmptyContent(t *testing.T) {
	emb := newStubEmbedder(8)
	e := newTestEngine(t, emb)

	res, err := e.Ingest(context.Background(), textSource("blank.txt", "  \n\t \n"))
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, StageRejected, res.Stage)
	assert.Equal(t, Stats{IndexType: "memory"}, e.Stats())
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestEngine_IngestUnsupportedFormat(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))

	// The file does not exist: the format is rejected before any read.
	res, err := e.Ingest(context.Background(), Source{Path: filepath.Join(t.TempDir(), "data.csv")})
	require.ErrorIs(t, err, extract.ErrUnsupportedFormat)
	assert.Equal(t, StageRejected, res.Stage)
	assert.Equal(t, Stats{IndexType: "memory"}, e.Stats())

	_, err = e.Ingest(context.Background(), Source{Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
}

func TestEngine_IngestPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta"), 0600))

	e := newTestEngine(t, newStubEmbedder(8))
	res, err := e.Ingest(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)

	_, err = e.Ingest(context.Background(), Source{Path: filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
	assert.Equal(t, 2, e.Stats().Chunks)
}

func TestEngine_IngestCorruptDocumentReportsIssues(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))
	res, err := e.Ingest(context.Background(), Source{
		Reader: strings.NewReader("not a zip"),
		Format: extract.FormatDOCX,
		Name:   "broken.docx",
	})
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.NotEmpty(t, res.Issues)
}

func TestEngine_IngestEmbeddingFailure(t *testing.T) {
	emb := newStubEmbedder(8)
	e := newTestEngine(t, emb)
	ctx := context.Background()
	_, err := e.Ingest(ctx, textSource("a.txt", "first"))
	require.NoError(t, err)

	emb.err = fmt.Errorf("%w: service unavailable", embedding.ErrBackend)
	res, err := e.Ingest(ctx, textSource("b.txt", "second\nthird"))
	require.ErrorIs(t, err, embedding.ErrBackend)
	assert.Equal(t, StageRejected, res.Stage)
	assert.Equal(t, 1, e.Stats().Chunks)
	assert.Equal(t, 1, e.Stats().Vectors)
}

func TestEngine_IngestDimensionMismatch(t *testing.T) {
	emb := newStubEmbedder(8)
	e := newTestEngine(t, emb)
	ctx := context.Background()
	_, err := e.Ingest(ctx, textSource("a.txt", "first"))
	require.NoError(t, err)

	emb.provider = embedding.NewProvider(embedding.Static(embedding.NewHashBackend(4)))
	res, err := e.Ingest(ctx, textSource("b.txt", "second"))
	require.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Equal(t, StageRejected, res.Stage)
	assert.Equal(t, Stats{Chunks: 1, Vectors: 1, Dimensions: 8, IndexType: "memory"}, e.Stats())
}

func TestEngine_IngestCanceled(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Ingest(ctx, textSource("a.txt", "text"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StageRejected, res.Stage)
}

func TestEngine_unknownIndexType(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8), WithIndexType("annoy"))
	_, err := e.Ingest(context.Background(), textSource("a.txt", "text"))
	require.Error(t, err)
	assert.Equal(t, 0, e.Stats().Chunks)
}

func TestEngine_concurrentIngestAndQuery(t *testing.T) {
	e := newTestEngine(t, newStubEmbedder(8))
	ctx := context.Background()

	const docs = 16
	var wg sync.WaitGroup
	for i := 0; i < docs; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := e.Ingest(ctx, textSource(fmt.Sprintf("doc%d.txt", i), fmt.Sprintf("doc %d line a\ndoc %d line b", i, i)))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := e.Retrieve(ctx, "doc line")
			assert.NoError(t, err)
			s := e.Stats()
			assert.Equal(t, s.Chunks, s.Vectors)
		}()
	}
	wg.Wait()

	s := e.Stats()
	assert.Equal(t, 2*docs, s.Chunks)
	assert.Equal(t, 2*docs, s.Vectors)

	// Every chunk is still aligned with its own vector.
	for i := 0; i < docs; i++ {
		text := fmt.Sprintf("doc %d line b", i)
		got, err := e.RetrieveK(ctx, text, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{text}, got)
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "indexed", StageIndexed.String())
	assert.Equal(t, "rejected", StageRejected.String())
	assert.Equal(t, "unknown", Stage(42).String())
}

// closingEmbedder closes the engine while a query is being embedded.
type closingEmbedder struct {
	*stubEmbedder
	engine *Engine
}

func (c *closingEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	_ = c.engine.Close()
	return c.stubEmbedder.EmbedOne(ctx, text)
}

func TestEngine_SearchAfterConcurrentClose(t *testing.T) {
	emb := &closingEmbedder{stubEmbedder: newStubEmbedder(8)}
	e := newTestEngine(t, emb)
	emb.engine = e
	ctx := context.Background()

	_, err := e.Ingest(ctx, textSource("a.txt", "alpha\nbeta"))
	require.NoError(t, err)

	passages, err := e.Search(ctx, "alpha", 2)
	require.NoError(t, err)
	assert.Empty(t, passages)
}
