package doclake

import "math"

// CosineDistance returns 1 - cosine_similarity(a, b), matching
// array_cosine_similarity's ordering convention (distance 0 = identical).
// Both vectors must already be validated to EmbeddingDim. Exported so
// internal/cloudsearch can score rows fetched from a remote catalog with the
// same metric used for local vector search.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - sim
}
