// Package vectormath provides the similarity primitives the detector's
// re-ranker composes: cosine over embeddings and Jaccard over file sets.
// Both are pure, allocation-free, and defined to be stable across
// platforms for identical inputs.
package vectormath

import "math"

// Cosine returns the cosine similarity between a and b, operating over
// the overlapping prefix min(len(a), len(b)). Vectors need not be
// normalized. Returns 0 if either norm is zero. Never panics.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Jaccard returns |A∩B| / |A∪B| for two string sets. Two empty sets are
// defined to be identical (1.0); exactly one empty set is defined to be
// maximally dissimilar (0.0). Iterates the smaller set for membership
// tests against the larger.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// StringSet builds a set from a slice, collapsing duplicates.
func StringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
