// Package embcache is a content-addressed embedding cache decorator.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/db"
	"github.com/eitan-ker/photo-selector-poc/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// cacheTTL ages cached vectors out eventually, so entries for deleted or
// renamed images do not pile up in Redis forever.
const cacheTTL = 30 * 24 * time.Hour

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// inner is the combined provider contract the cache wraps.
type inner interface {
	domain.Embedder
	domain.ImageEmbedder
}

// CachedEmbedder caches embeddings in a key-value store, keyed by content
// hash. An image keeps its cached vector until its bytes change, which
// spares re-embedding an unchanged folder on every search.
type CachedEmbedder struct {
	inner      inner
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	in inner,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      in,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached text embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey([]byte(text))

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// EmbedImage returns a cached image embedding or calls the inner embedder.
func (c *CachedEmbedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	key := c.cacheKey(image)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.EmbedImage(ctx, image)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// BatchEmbedImages serves cached vectors and forwards only the misses to the
// inner provider in one batched call.
func (c *CachedEmbedder) BatchEmbedImages(
	ctx context.Context, images [][]byte,
) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(images))
	var missed [][]byte
	var missedIdx []int

	for i, img := range images {
		key := c.cacheKey(img)
		if vec, ok := c.getFromCache(ctx, key); ok {
			c.incCache("hit")
			embeddings[i] = vec
			continue
		}
		c.incCache("miss")
		missed = append(missed, img)
		missedIdx = append(missedIdx, i)
	}

	if len(missed) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	result, err := c.embedMissed(ctx, missed)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(result.Embeddings) != len(missed) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"provider returned %d embeddings for %d images", len(result.Embeddings), len(missed),
		)
	}

	for j, i := range missedIdx {
		embeddings[i] = result.Embeddings[j]
		c.putToCache(ctx, c.cacheKey(missed[j]), result.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: result.PromptTokens,
		TotalTokens:  result.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) embedMissed(
	ctx context.Context, images [][]byte,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchImageEmbedder); ok {
		res, err := be.BatchEmbedImages(ctx, images)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed images: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchImageFallback(ctx, c.inner, images)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed images fallback: %w", err)
	}
	return res, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(content []byte) string {
	h := sha256.Sum256(content)
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.Set(ctx, key, data, cacheTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
