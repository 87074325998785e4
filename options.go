package photoselector

import (
	"go.uber.org/zap"

	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	dimensions int

	cacheAddrs    []string
	cachePassword string

	classify       bool
	vocabularyPath string

	dailyTokens    int64
	monthlyTokens  int64
	rejectOnBudget bool

	skipDecodeErrors bool

	embedder Embedder
	logger   *zap.Logger

	defaults searchDefaults
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		provider:   "local",
		baseURL:    "http://localhost:7997/v1",
		model:      "clip-ViT-B-32",
		dimensions: 512,
		logger:     zap.NewNop(),
		defaults: searchDefaults{
			threshold:    domsearch.DefaultThreshold,
			maxResults:   domsearch.DefaultMaxResults,
			fusionWeight: domsearch.DefaultFusionWeight,
			topKLabels:   domsearch.DefaultTopKLabels,
		},
	}
}

// WithEndpoint points the client at an OpenAI-compatible embeddings endpoint.
func WithEndpoint(baseURL, apiKey string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
		c.apiKey = apiKey
	}
}

// WithModel selects the CLIP-family embedding model and its dimensionality.
func WithModel(model string, dimensions int) Option {
	return func(c *clientConfig) {
		c.model = model
		c.dimensions = dimensions
	}
}

// WithRedisCache enables the content-addressed embedding cache.
func WithRedisCache(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
	}
}

// WithClassifier enables zero-shot label classification. vocabularyPath may
// be empty to use the built-in label set.
func WithClassifier(vocabularyPath string) Option {
	return func(c *clientConfig) {
		c.classify = true
		c.vocabularyPath = vocabularyPath
	}
}

// WithTokenBudget caps embedding token spend. Zero disables a limit.
// When reject is true requests beyond the budget fail instead of warning.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOnBudget = reject
	}
}

// WithSkipDecodeErrors makes searches warn and skip undecodable images
// instead of aborting.
func WithSkipDecodeErrors() Option {
	return func(c *clientConfig) {
		c.skipDecodeErrors = true
	}
}

// WithEmbedder injects a custom embedding provider instead of the
// OpenAI-compatible transport.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// SearchOption overrides per-search parameters.
type SearchOption func(*searchDefaults)

type searchDefaults struct {
	threshold    float64
	maxResults   int
	fusionWeight float64
	topKLabels   int
	classify     bool
}

// WithThreshold sets the minimum fused score in [-1,1] for a match.
func WithThreshold(threshold float64) SearchOption {
	return func(p *searchDefaults) {
		p.threshold = threshold
	}
}

// WithMaxResults caps the number of matches returned.
func WithMaxResults(max int) SearchOption {
	return func(p *searchDefaults) {
		p.maxResults = max
	}
}

// WithFusionWeight sets the label score blend weight in [0,1].
func WithFusionWeight(weight float64) SearchOption {
	return func(p *searchDefaults) {
		p.fusionWeight = weight
	}
}

// WithTopKLabels sets how many predicted labels each image gets.
func WithTopKLabels(topK int) SearchOption {
	return func(p *searchDefaults) {
		p.topKLabels = topK
	}
}

// WithoutClassification disables label fusion for this search even when
// the client has a classifier.
func WithoutClassification() SearchOption {
	return func(p *searchDefaults) {
		p.classify = false
	}
}
