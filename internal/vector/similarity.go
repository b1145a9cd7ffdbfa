// Package vector provides similarity helpers for embedding vectors.
package vector

// CosineSimilarity returns the inner product of two vectors, which equals
// cosine similarity when both are L2-normalized. Mismatched or empty inputs
// score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}
