package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/jonathan/ats-tailor/internal/parsing"
)

// DefaultHashingDims is the vector width of the hashing provider
const DefaultHashingDims = 384

// HashingProvider is a deterministic local embedder: unigram and bigram
// terms are hashed into a fixed number of buckets and the counts are
// l2-normalized. It needs no network and never fails.
type HashingProvider struct {
	dims int
}

// NewHashingProvider returns a hashing provider with dims buckets (DefaultHashingDims when <= 0)
func NewHashingProvider(dims int) *HashingProvider {
	if dims <= 0 {
		dims = DefaultHashingDims
	}
	return &HashingProvider{dims: dims}
}

// Name implements Provider
func (p *HashingProvider) Name() string { return "hashing" }

// Model implements Modeled; vectors differ by bucket count
func (p *HashingProvider) Model() string { return fmt.Sprintf("fnv-%d", p.dims) }

// Embed implements Provider. The kind is ignored.
func (p *HashingProvider) Embed(ctx context.Context, texts []string, _ Kind) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashingProvider) vector(text string) []float64 {
	vec := make([]float64, p.dims)
	for _, term := range parsing.Terms(parsing.Normalize(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		vec[h.Sum32()%uint32(p.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
