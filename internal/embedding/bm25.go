package embedding

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultAvgDocLen is the corpus-average document length the
	// scorer is parameterized with. It sets the absolute scale of
	// every weight, so it must stay the same across an ingestion and
	// the deployment serving that collection.
	DefaultAvgDocLen = 5.75

	k1 = 1.2
	b  = 0.75
)

// BM25 scores text into sparse weighted term vectors. Term indices
// are hashes of the token, weights follow the BM25 term-saturation
// formula against the configured average document length. The
// embedder holds no per-call state and is safe for concurrent use.
type BM25 struct {
	avgDocLen float64
}

// NewBM25 builds an embedder with the given average document length.
// Values <= 0 fall back to DefaultAvgDocLen.
func NewBM25(avgDocLen float64) *BM25 {
	if avgDocLen <= 0 {
		avgDocLen = DefaultAvgDocLen
	}
	return &BM25{avgDocLen: avgDocLen}
}

// Embed converts text into a sparse term vector. It never fails:
// text with no scorable tokens yields an empty vector.
func (e *BM25) Embed(text string) SparseVector {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return SparseVector{}
	}

	freq := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, seen := freq[tok]; !seen {
			order = append(order, tok)
		}
		freq[tok]++
	}

	docLen := float64(len(tokens))
	norm := k1 * (1 - b + b*docLen/e.avgDocLen)

	vec := SparseVector{
		Indices: make([]uint32, 0, len(order)),
		Values:  make([]float32, 0, len(order)),
	}
	for _, tok := range order {
		tf := float64(freq[tok])
		weight := tf * (k1 + 1) / (tf + norm)
		vec.Indices = append(vec.Indices, termIndex(tok))
		vec.Values = append(vec.Values, float32(weight))
	}
	return vec
}

// EmbedBatch embeds each text independently, preserving order.
func (e *BM25) EmbedBatch(texts []string) []SparseVector {
	vectors := make([]SparseVector, len(texts))
	for i, t := range texts {
		vectors[i] = e.Embed(t)
	}
	return vectors
}

func termIndex(token string) uint32 {
	return uint32(xxhash.Sum64String(token))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
