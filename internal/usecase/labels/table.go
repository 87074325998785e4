// Package labels builds a precomputed label embedding table and classifies
// images zero-shot against it.
package labels

import (
	"context"
	"fmt"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
)

// Table maps each vocabulary label to its embedding vector. Built once
// during initialization; read-only afterwards, safe for concurrent use.
type Table struct {
	labels  []string
	vectors map[string][]float32
	dim     int
}

// NewTable embeds the whole vocabulary in one batched call and freezes the
// result. This is the slow one-time precomputation of the startup phase.
func NewTable(ctx context.Context, embedder domain.BatchEmbedder, vocabulary []string) (*Table, error) {
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	res, err := embedder.BatchEmbed(ctx, vocabulary)
	if err != nil {
		return nil, fmt.Errorf("embed vocabulary: %w: %w", domain.ErrProviderInit, err)
	}
	if len(res.Embeddings) != len(vocabulary) {
		return nil, fmt.Errorf(
			"vocabulary embedding count mismatch: %d labels, %d vectors: %w",
			len(vocabulary), len(res.Embeddings), domain.ErrEmbeddingProviderError,
		)
	}

	vectors := make(map[string][]float32, len(vocabulary))
	dim := 0
	for i, label := range vocabulary {
		vec := res.Embeddings[i]
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf(
				"label %q has %d dims, expected %d: %w",
				label, len(vec), dim, domain.ErrVectorDimMismatch,
			)
		}
		vectors[label] = vec
	}

	return &Table{labels: vocabulary, vectors: vectors, dim: dim}, nil
}

// Lookup returns the embedding for a label.
func (t *Table) Lookup(label string) ([]float32, bool) {
	vec, ok := t.vectors[label]
	return vec, ok
}

// Labels returns the vocabulary in input order. Callers must not mutate it.
func (t *Table) Labels() []string { return t.labels }

// Dim returns the embedding dimensionality.
func (t *Table) Dim() int { return t.dim }

// Len returns the vocabulary size.
func (t *Table) Len() int { return len(t.labels) }
