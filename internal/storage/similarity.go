package storage

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampSimilarity keeps scores in [0,1]
func clampSimilarity(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Rank drops matches below the threshold or outside the category, sorts the
// rest by descending similarity and keeps at most opts.Limit of them. Backends
// that score in Go use it directly; the service applies it again as a
// post-filter for backends that cannot filter natively.
func Rank(matches []ChunkMatch, opts SearchOpts) []ChunkMatch {
	limit := searchLimit(opts)

	kept := make([]ChunkMatch, 0, len(matches))
	for _, m := range matches {
		m.Similarity = clampSimilarity(m.Similarity)
		if m.Similarity < opts.Threshold {
			continue
		}
		if !m.MatchesCategory(opts.Category) {
			continue
		}
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
