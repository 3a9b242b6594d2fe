package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/ragqa/internal/embedding"
	"github.com/hyperjump/ragqa/internal/extract"
)

func BenchmarkEngine_Retrieve(b *testing.B) {
	provider := embedding.NewProvider(embedding.Static(embedding.NewHashBackend(384)), embedding.WithCache(64))
	e := NewEngine(extract.NewExtractor(), lineChunker{}, provider)
	defer e.Close()
	var doc strings.Builder
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&doc, "line %d of the benchmark corpus\n", i)
	}
	ctx := context.Background()
	if _, err := e.Ingest(ctx, Source{Reader: strings.NewReader(doc.String()), Format: extract.FormatText}); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Retrieve(ctx, "which line mentions the corpus")
	}
}
