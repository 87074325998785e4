package search

import (
	"context"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
	"github.com/eitan-ker/photo-selector-poc/internal/usecase/labels"
)

// Gallery lists and loads image files from a folder.
type Gallery interface {
	List(ctx context.Context, dir string) ([]gallery.Image, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// Embedder vectorizes the query text and image bytes into a shared space.
// Implementations that also satisfy domain.BatchImageEmbedder get one
// batched call per search instead of one call per image.
type Embedder interface {
	domain.Embedder
	domain.ImageEmbedder
}

// Classifier predicts labels for an image embedding.
type Classifier interface {
	Classify(imageVec []float32, topK int) []string
	Table() *labels.Table
}
