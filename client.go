// Package photoselector is the embeddable client for ranking folder images
// by semantic similarity to a free-text query. It wires the same components
// the photofind CLI uses: a CLIP-family embedding provider, an optional
// Redis-backed embedding cache, and an optional zero-shot label classifier
// whose scores fuse into the ranking.
package photoselector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/db"
	dbRedis "github.com/eitan-ker/photo-selector-poc/internal/db/redis"
	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	"github.com/eitan-ker/photo-selector-poc/internal/metrics"
	budgetrepo "github.com/eitan-ker/photo-selector-poc/internal/repository/budget"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/embcache"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
	openaiEmb "github.com/eitan-ker/photo-selector-poc/internal/transport/openai"
	embeddinguc "github.com/eitan-ker/photo-selector-poc/internal/usecase/embedding"
	"github.com/eitan-ker/photo-selector-poc/internal/usecase/labels"
	searchuc "github.com/eitan-ker/photo-selector-poc/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinel errors callers can match with errors.Is.
var (
	// ErrFolderNotFound reports a missing or unreadable image folder.
	ErrFolderNotFound = domain.ErrDirectoryNotFound
	// ErrImageDecode reports an image file that could not be decoded.
	ErrImageDecode = domain.ErrImageDecode
)

// EmbeddingResult carries an embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder is the pluggable embedding provider contract. Implementations
// must return L2-normalized vectors; text and image embeddings must share
// one vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	EmbedImage(ctx context.Context, image []byte) (EmbeddingResult, error)
}

// Match is a single ranked image.
type Match struct {
	Path        string
	FileName    string
	Rank        int
	Score       float64
	VisualScore float64
	LabelScore  float64
	Labels      []string
}

// Result bundles the ranked matches with execution statistics.
type Result struct {
	Matches     []Match
	TotalImages int
	Elapsed     time.Duration
}

// Client ranks images in local folders. Safe for concurrent use.
type Client struct {
	svc        *searchuc.Service
	store      db.Store
	classifier searchuc.Classifier
	defaults   searchDefaults
}

// New creates a Client. Without options it talks to an OpenAI-compatible
// embeddings endpoint at localhost with no cache and no classifier.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	logger := cfg.logger
	ctx := context.Background()

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("photoselector: create cache store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("photoselector: cache store not ready: %w", err)
		}
		store = s
	}

	embedder := buildChain(cfg, store, logger)

	var classifier searchuc.Classifier
	if cfg.classify {
		vocab, err := labels.LoadVocabulary(cfg.vocabularyPath)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("photoselector: load vocabulary: %w", err)
		}
		table, err := labels.NewTable(ctx, embedder, vocab)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("photoselector: build label table: %w", err)
		}
		classifier = labels.NewClassifier(table, logger)
	}

	svc := searchuc.New(gallery.New(true), embedder, classifier, logger).
		WithDecodePolicy(cfg.skipDecodeErrors)

	return &Client{
		svc:        svc,
		store:      store,
		classifier: classifier,
		defaults:   cfg.defaults,
	}, nil
}

// buildChain assembles the decorator chain: provider -> cached -> instrumented.
func buildChain(cfg *clientConfig, store db.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	var base interface {
		domain.Embedder
		domain.ImageEmbedder
	}
	if cfg.embedder != nil {
		base = &embedderAdapter{inner: cfg.embedder}
	} else {
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.model,
			Dimensions: cfg.dimensions,
			Provider:   cfg.provider,
			Logger:     logger,
		})
	}

	inner := base
	if store != nil {
		inner = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	var budgetChecker embeddinguc.BudgetChecker
	if cfg.dailyTokens > 0 || cfg.monthlyTokens > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.rejectOnBudget {
			action = embeddinguc.BudgetActionReject
		}
		budget := embeddinguc.NewBudgetTracker(
			cfg.provider, cfg.dailyTokens, cfg.monthlyTokens, action, logger,
		)
		if store != nil {
			budget.WithStore(context.Background(), budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		}
		budgetChecker = budget
	}

	return embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.provider, cfg.model, budgetChecker, logger,
	)
}

// Search ranks the images in folder by similarity to query.
func (c *Client) Search(ctx context.Context, folder, query string, opts ...SearchOption) (*Result, error) {
	p := c.defaults
	p.classify = c.classifier != nil
	for _, o := range opts {
		o(&p)
	}

	req, err := domsearch.NewRequest(
		folder, query, p.threshold, p.maxResults,
		p.classify, p.fusionWeight, p.topKLabels,
	)
	if err != nil {
		return nil, fmt.Errorf("photoselector: %w", err)
	}

	resp, err := c.svc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("photoselector: %w", err)
	}

	matches := make([]Match, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		matches[i] = Match{
			Path:        r.Path(),
			FileName:    r.FileName(),
			Rank:        r.Rank(),
			Score:       r.Similarity(),
			VisualScore: r.VisualScore(),
			LabelScore:  r.AuxScore(),
			Labels:      r.Labels(),
		}
	}

	return &Result{
		Matches:     matches,
		TotalImages: resp.Stats.TotalImages(),
		Elapsed:     resp.Stats.Elapsed(),
	}, nil
}

// Ping checks cache store connectivity. A Client without a cache always
// reports healthy.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("photoselector: ping: %w", err)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	closeStore(c.store)
}

func closeStore(store db.Store) {
	if store != nil {
		store.Close()
	}
}

// embedderAdapter wraps a public Embedder to satisfy the internal contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedImage(ctx, image)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
