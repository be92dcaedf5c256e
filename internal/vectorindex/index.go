// Package vectorindex provides a nearest-neighbour index over embedding vectors.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
)

// Metadata is attached to every stored vector
type Metadata map[string]string

// Result is one query hit
type Result struct {
	Similarity float64
	Metadata   Metadata
}

// Index stores vectors and answers cosine-similarity queries
type Index interface {
	Upsert(vectors [][]float64, metadata []Metadata) error
	Query(vector []float64, topK int) []Result
	Len() int
}

// Factory creates a fresh, empty index
type Factory func() Index

// MemoryIndex is an in-process brute-force cosine index. It is not safe for
// concurrent writers; each request builds its own.
type MemoryIndex struct {
	vectors  [][]float64
	norms    []float64
	metadata []Metadata
}

// NewMemoryIndex returns an empty MemoryIndex
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// NewMemoryFactory returns a Factory producing MemoryIndex values
func NewMemoryFactory() Factory {
	return func() Index { return NewMemoryIndex() }
}

// Upsert appends vectors with their metadata. All vectors in the index must share one dimension.
func (ix *MemoryIndex) Upsert(vectors [][]float64, metadata []Metadata) error {
	if len(vectors) != len(metadata) {
		return fmt.Errorf("upsert: %d vectors with %d metadata entries", len(vectors), len(metadata))
	}
	dim := -1
	if len(ix.vectors) > 0 {
		dim = len(ix.vectors[0])
	} else if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("upsert: vector %d has dimension %d, index has %d", i, len(v), dim)
		}
	}
	for i, v := range vectors {
		ix.vectors = append(ix.vectors, v)
		ix.norms = append(ix.norms, norm(v))
		ix.metadata = append(ix.metadata, metadata[i])
	}
	return nil
}

// Query returns up to topK stored vectors ordered by descending cosine
// similarity. Ties keep insertion order. A dimension mismatch yields no results.
func (ix *MemoryIndex) Query(vector []float64, topK int) []Result {
	if len(ix.vectors) == 0 || topK <= 0 || len(vector) != len(ix.vectors[0]) {
		return nil
	}
	qn := norm(vector)

	results := make([]Result, 0, len(ix.vectors))
	for i, v := range ix.vectors {
		results = append(results, Result{
			Similarity: cosine(vector, v, qn, ix.norms[i]),
			Metadata:   ix.metadata[i],
		})
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Len returns the number of stored vectors
func (ix *MemoryIndex) Len() int {
	return len(ix.vectors)
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// cosine is zero when either vector is zero
func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (na * nb)
}
