// internal/knowledge/embedder.go

// Package knowledge holds the crawled-site memory the planner draws on: an
// in-memory vector store over chunked page summaries, searched by cosine
// distance.
package knowledge

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder maps text to fixed-size vectors via hashed term frequencies.
// It is fully deterministic and needs no model weights, which keeps the
// store dependency-free and the planner's retrieval reproducible. Quality
// is adequate for keyword-flavored queries like "login form username
// password"; it is not a semantic embedding.
type Embedder struct {
	dims int
}

func NewEmbedder(dims int) *Embedder {
	return &Embedder{dims: dims}
}

// Embed returns the L2-normalized hashed term-frequency vector of the text.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, e.dims)
	for _, term := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[int(h.Sum32())%e.dims]++
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

// CosineDistance returns 1 - cosine similarity for two normalized vectors.
// Identical content scores 0, unrelated content approaches 1.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
