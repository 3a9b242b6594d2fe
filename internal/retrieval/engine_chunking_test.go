package retrieval_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/ragqa/internal/embedding"
	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/indexer"
	"github.com/hyperjump/ragqa/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distinctWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestEngine_IngestTwiceDoubles(t *testing.T) {
	chunker, err := indexer.NewChunker(500, 50)
	require.NoError(t, err)
	provider := embedding.NewProvider(embedding.Static(embedding.NewHashBackend(8)))
	e := retrieval.NewEngine(extract.NewExtractor(), chunker, provider)
	t.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	text := distinctWords(600)
	source := func() retrieval.Source {
		return retrieval.Source{Reader: strings.NewReader(text), Format: extract.FormatText, Name: "manual.txt"}
	}

	res, err := e.Ingest(ctx, source())
	require.NoError(t, err)
	assert.Equal(t, retrieval.StageIndexed, res.Stage)
	assert.Equal(t, 2, res.Chunks)

	// The second window starts at word 450.
	passages, err := e.Search(ctx, text[strings.Index(text, "word450 "):], 2)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.True(t, strings.HasPrefix(passages[0].Text, "word450 "), "nearest chunk %q", passages[0].Text[:20])

	res, err = e.Ingest(ctx, source())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	stats := e.Stats()
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, 4, stats.Vectors)
}
