// Package vector provides append-only nearest-neighbour indexes over fixed-dimension vectors.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched (via errors.Is) by every *DimensionMismatchError.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Index is an append-only vector index. Vectors are identified by their insertion
// ordinal, starting at 0; there is no removal.
type Index interface {
	// Insert appends vectors. Either every vector is appended or none is.
	Insert(ctx context.Context, vectors [][]float32) error
	// Search returns up to k nearest neighbours of query by ascending squared
	// Euclidean distance, ties broken by lower ordinal.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Count() int
	Dimensions() int
	Type() string
	Close() error
}

// Neighbor is a single search hit.
type Neighbor struct {
	Ordinal  int
	Distance float32 // squared L2
}

// checkDimensions validates every vector before anything is appended.
func checkDimensions(dims int, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != dims {
			return &DimensionMismatchError{Expected: dims, Actual: len(v)}
		}
	}
	return nil
}
