package mapping

import (
	"math"

	"github.com/jonathan/ats-tailor/internal/parsing"
)

// TFIDF is a unigram+bigram term weighting fitted over a small document set.
// Idf is smoothed as ln((1+n)/(1+df))+1 and vectors are l2-normalized.
type TFIDF struct {
	idf map[string]float64
}

// FitTFIDF learns document frequencies over docs
func FitTFIDF(docs []string) *TFIDF {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range parsing.Terms(doc) {
			if seen[term] {
				continue
			}
			seen[term] = true
			df[term]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}
	return &TFIDF{idf: idf}
}

// Vector returns the sparse, l2-normalized tf-idf vector of doc.
// Terms outside the fitted vocabulary are ignored.
func (t *TFIDF) Vector(doc string) map[string]float64 {
	vec := make(map[string]float64)
	for _, term := range parsing.Terms(doc) {
		if w, ok := t.idf[term]; ok {
			vec[term] += w
		}
	}
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

// SparseCosine is the dot product of two l2-normalized sparse vectors
func SparseCosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, v := range a {
		dot += v * b[term]
	}
	return dot
}
