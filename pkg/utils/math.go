package utils

import "math"

// NormalizeL2 scales an embedding vector in place to unit length, so the dot
// product of two normalized vectors is their cosine similarity. A zero vector
// is left as is.
func NormalizeL2(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= inv
	}
}
