package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic, dependency-free embedding model:
// bag-of-words feature hashing into a fixed number of dimensions,
// L2-normalized. It stands in wherever a remote model is not configured,
// and gives tests bit-identical vectors for identical text.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates an embedder with the given dimensionality.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

// Embed maps each whitespace-separated token onto a dimension by hash
// and counts occurrences, then normalizes the vector to unit length.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		v[h.Sum32()%uint32(e.dims)]++
	}

	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v, nil
}
