package vectorstore

import (
	"math"
	"sort"

	"ragpipe/internal/domain"
)

// Candidate is a scored search hit with the insertion sequence of its record.
type Candidate struct {
	Result domain.SearchResult
	Seq    int64
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// length or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK orders candidates nearest-first, earliest-inserted first among equal
// scores, and returns at most k results.
func TopK(candidates []Candidate, k int) []domain.SearchResult {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Result.Score != candidates[j].Result.Score {
			return candidates[i].Result.Score > candidates[j].Result.Score
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]domain.SearchResult, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, candidates[i].Result)
	}
	return out
}
