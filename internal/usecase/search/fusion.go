package search

import (
	"math"

	"github.com/eitan-ker/photo-selector-poc/internal/usecase/labels"
)

// dotProduct is the cosine similarity of two pre-normalized vectors.
// Accumulates in float64; mismatched lengths score 0.
func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// labelScore is the best query similarity among the predicted labels.
// A label missing from the table contributes 0 to the max rather than
// failing; an empty prediction list scores 0.
func labelScore(predicted []string, table *labels.Table, queryVec []float32) float64 {
	if len(predicted) == 0 || table == nil {
		return 0
	}

	best := math.Inf(-1)
	for _, label := range predicted {
		score := 0.0
		if vec, ok := table.Lookup(label); ok {
			score = dotProduct(vec, queryVec)
		}
		if score > best {
			best = score
		}
	}
	return best
}

// fuseScores linearly blends the visual and label scores.
// weight is clamped to [0,1]; 0 keeps the CLIP score untouched.
func fuseScores(visual, aux, weight float64) float64 {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	return (1-weight)*visual + weight*aux
}
