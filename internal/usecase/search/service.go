// Package search ranks folder images by semantic similarity to a text query.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	"github.com/eitan-ker/photo-selector-poc/internal/metrics"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
)

// Response bundles the ranked results with execution statistics.
type Response struct {
	Results []domsearch.Result
	Stats   domsearch.Stats
}

// Service orchestrates one search: enumerate, embed, score, fuse, rank.
// Calls are independent; every call re-enumerates and re-embeds the folder
// (the content-addressed cache decorator, when configured, absorbs the cost
// transparently).
type Service struct {
	gallery          Gallery
	embedder         Embedder
	classifier       Classifier // nil when auxiliary scoring is unavailable
	skipDecodeErrors bool
	logger           *zap.Logger
}

// New creates a search service. classifier may be nil.
func New(g Gallery, e Embedder, c Classifier, logger *zap.Logger) *Service {
	return &Service{gallery: g, embedder: e, classifier: c, logger: logger}
}

// WithDecodePolicy selects the per-image decode failure policy:
// skip (warn and continue) or the default abort.
func (s *Service) WithDecodePolicy(skip bool) *Service {
	s.skipDecodeErrors = skip
	return s
}

// Search executes a full ranking pass over the request folder.
// Enumeration or embedding failures abort the call with no partial results;
// classification failures degrade per image to an empty label list.
func (s *Service) Search(ctx context.Context, req *domsearch.Request) (Response, error) {
	start := time.Now()

	resp, err := s.search(ctx, req, start)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}

	metrics.SearchesTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.
		WithLabelValues(fmt.Sprintf("%t", s.useClassifier(req))).
		Observe(time.Since(start).Seconds())
	return resp, nil
}

func (s *Service) search(ctx context.Context, req *domsearch.Request, start time.Time) (Response, error) {
	images, err := s.gallery.List(ctx, req.Folder())
	if err != nil {
		return Response{}, fmt.Errorf("list images: %w", err)
	}
	metrics.ImagesScannedTotal.Add(float64(len(images)))

	totalImages := len(images)
	if totalImages == 0 {
		return Response{
			Stats: domsearch.NewStats(0, 0, time.Since(start), req.Query()),
		}, nil
	}

	queryRes, err := s.embedder.Embed(ctx, req.Query())
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}
	queryVec := queryRes.Embedding

	loaded, err := s.loadImages(ctx, images)
	if err != nil {
		return Response{}, err
	}

	vectors, err := s.embedImages(ctx, loaded)
	if err != nil {
		return Response{}, err
	}

	candidates := make([]candidate, 0, len(loaded))
	for i, img := range loaded {
		vec := vectors[i]
		if len(vec) != len(queryVec) {
			return Response{}, fmt.Errorf(
				"image %s: %d dims vs query %d: %w",
				img.image.Name, len(vec), len(queryVec), domain.ErrVectorDimMismatch,
			)
		}

		visual := dotProduct(vec, queryVec)
		fused := visual
		aux := 0.0
		var predicted []string

		if s.useClassifier(req) {
			predicted = s.classifier.Classify(vec, req.TopKLabels())
			aux = labelScore(predicted, s.classifier.Table(), queryVec)
			fused = fuseScores(visual, aux, req.FusionWeight())
		}

		candidates = append(candidates, candidate{
			image:  img.image,
			visual: visual,
			aux:    aux,
			fused:  fused,
			labels: predicted,
		})
	}

	results := rank(candidates, req.Threshold(), req.MaxResults())

	s.logger.Debug("Search completed",
		zap.String("query", req.Query()),
		zap.Int("total_images", totalImages),
		zap.Int("matching_images", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Response{
		Results: results,
		Stats:   domsearch.NewStats(totalImages, len(results), time.Since(start), req.Query()),
	}, nil
}

// loadedImage pairs an enumerated image with its raw bytes.
type loadedImage struct {
	image gallery.Image
	data  []byte
}

// loadImages reads image bytes, honoring the decode failure policy.
// Skipped images stay counted in TotalImages but are excluded from scoring.
func (s *Service) loadImages(ctx context.Context, images []gallery.Image) ([]loadedImage, error) {
	loaded := make([]loadedImage, 0, len(images))
	for _, img := range images {
		data, err := s.gallery.Load(ctx, img.Path)
		if err != nil {
			if s.skipDecodeErrors && errors.Is(err, domain.ErrImageDecode) {
				metrics.ImagesSkippedTotal.WithLabelValues("decode_error").Inc()
				s.logger.Warn("Skipping undecodable image",
					zap.String("path", img.Path),
					zap.Error(err),
				)
				continue
			}
			return nil, fmt.Errorf("load image: %w", err)
		}
		loaded = append(loaded, loadedImage{image: img, data: data})
	}
	return loaded, nil
}

// embedImages vectorizes all loaded images, batched when the provider
// supports it.
func (s *Service) embedImages(ctx context.Context, loaded []loadedImage) ([][]float32, error) {
	data := make([][]byte, len(loaded))
	for i, l := range loaded {
		data[i] = l.data
	}

	var res domain.BatchEmbeddingResult
	var err error
	if be, ok := s.embedder.(domain.BatchImageEmbedder); ok {
		res, err = be.BatchEmbedImages(ctx, data)
	} else {
		res, err = domain.BatchImageFallback(ctx, s.embedder, data)
	}
	if err != nil {
		return nil, fmt.Errorf("embed images: %w", err)
	}
	if len(res.Embeddings) != len(loaded) {
		return nil, fmt.Errorf(
			"provider returned %d vectors for %d images: %w",
			len(res.Embeddings), len(loaded), domain.ErrEmbeddingProviderError,
		)
	}
	return res.Embeddings, nil
}

func (s *Service) useClassifier(req *domsearch.Request) bool {
	return req.Classify() && s.classifier != nil
}
