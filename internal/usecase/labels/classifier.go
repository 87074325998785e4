package labels

import (
	"sort"

	"go.uber.org/zap"
)

// Classifier predicts labels for an image zero-shot: it ranks the vocabulary
// by cosine similarity between the label embedding and the image embedding.
// Both sides are pre-normalized, so the dot product is the similarity.
type Classifier struct {
	table  *Table
	logger *zap.Logger
}

// NewClassifier creates a zero-shot classifier over a label table.
func NewClassifier(table *Table, logger *zap.Logger) *Classifier {
	return &Classifier{table: table, logger: logger}
}

// Table exposes the underlying label embedding table.
func (c *Classifier) Table() *Table { return c.table }

// Classify returns up to topK labels best matching the image embedding,
// best first. Classification is auxiliary: on any internal mismatch it
// degrades to an empty list with a warning instead of failing the search.
func (c *Classifier) Classify(imageVec []float32, topK int) []string {
	if topK <= 0 || c.table == nil || c.table.Len() == 0 {
		return nil
	}
	if len(imageVec) != c.table.Dim() {
		c.logger.Warn("Image embedding does not match label table dimensions",
			zap.Int("image_dims", len(imageVec)),
			zap.Int("table_dims", c.table.Dim()),
		)
		return nil
	}

	type scored struct {
		label string
		score float64
	}

	ranked := make([]scored, 0, c.table.Len())
	for _, label := range c.table.Labels() {
		vec, _ := c.table.Lookup(label)
		var dot float64
		for i := range vec {
			dot += float64(vec[i]) * float64(imageVec[i])
		}
		ranked = append(ranked, scored{label: label, score: dot})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]string, topK)
	for i := range out {
		out[i] = ranked[i].label
	}
	return out
}
