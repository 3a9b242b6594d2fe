package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/ragqa/pkg/utils"
)

// MemoryIndex is an in-memory vector index using exact brute-force squared L2 search.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the fixed vector length.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Insert appends copies of vectors after checking all of their dimensions.
func (m *MemoryIndex) Insert(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions(m.dimensions, vectors); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search scans every vector and returns the k closest.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.vectors) == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != m.dimensions {
		return nil, &DimensionMismatchError{Expected: m.dimensions, Actual: len(query)}
	}
	results := make([]Neighbor, len(m.vectors))
	for i, vec := range m.vectors {
		results[i] = Neighbor{Ordinal: i, Distance: utils.SquaredL2(query, vec)}
	}
	sortNeighbors(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count returns the number of stored vectors.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close releases the stored vectors.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = nil
	return nil
}

// sortNeighbors orders by ascending distance, then ascending ordinal.
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Ordinal < ns[j].Ordinal
	})
}
