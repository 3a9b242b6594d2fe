package vector

import (
	"errors"
	"fmt"
)

// ErrUnknownIndexType is returned for an index type other than memory or faiss.
var ErrUnknownIndexType = errors.New("unknown index type")

// IndexType names a vector index implementation.
type IndexType string

const (
	// IndexTypeMemory is exact brute-force search in Go. The default.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS IndexFlatL2: exact search, SIMD accelerated.
	// Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates an index of the given type ("" means memory).
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("%w: %q (supported: memory, faiss)", ErrUnknownIndexType, indexType)
	}
}

// Resolve returns the index type to build for a configured name. FAISS falls back to
// memory when it is not compiled in, and fellBack reports that. Both give the same
// results, FAISS is only faster.
func Resolve(indexType string) (resolved IndexType, fellBack bool, err error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return IndexTypeMemory, false, nil
	case IndexTypeFAISS:
		if !IsFAISSAvailable() {
			return IndexTypeMemory, true, nil
		}
		return IndexTypeFAISS, false, nil
	default:
		return "", false, fmt.Errorf("%w: %q (supported: memory, faiss)", ErrUnknownIndexType, indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in (-tags=faiss).
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
