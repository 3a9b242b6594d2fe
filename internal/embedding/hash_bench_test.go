package embedding

import (
	"context"
	"testing"
)

func BenchmarkHashBackend_Encode(b *testing.B) {
	e := NewHashBackend(384)
	ctx := context.Background()
	texts := []string{"benchmark query text for embedding"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Encode(ctx, texts)
	}
}

func BenchmarkProvider_EmbedCached(b *testing.B) {
	p := NewProvider(Static(NewHashBackend(384)), WithCache(16))
	ctx := context.Background()
	_, _ = p.EmbedOne(ctx, "warm")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.EmbedOne(ctx, "warm")
	}
}
