package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAISSIndex_InsertSearch(t *testing.T) {
	if !IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}
	idx, err := NewIndex("faiss", 3)
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}))
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Ordinal)
	assert.Equal(t, 1, results[1].Ordinal)

	err = idx.Insert(ctx, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 3, idx.Count())
}

func TestFAISSIndex_stub(t *testing.T) {
	if IsFAISSAvailable() {
		t.Skip("FAISS compiled in")
	}
	_, err := NewFAISSIndex(3)
	assert.Error(t, err)
}
