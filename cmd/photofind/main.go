package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/config"
	"github.com/eitan-ker/photo-selector-poc/internal/db"
	dbRedis "github.com/eitan-ker/photo-selector-poc/internal/db/redis"
	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	logpkg "github.com/eitan-ker/photo-selector-poc/internal/logger"
	"github.com/eitan-ker/photo-selector-poc/internal/metrics"
	budgetrepo "github.com/eitan-ker/photo-selector-poc/internal/repository/budget"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/embcache"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
	chiTransport "github.com/eitan-ker/photo-selector-poc/internal/transport/chi"
	openaiEmb "github.com/eitan-ker/photo-selector-poc/internal/transport/openai"
	embeddinguc "github.com/eitan-ker/photo-selector-poc/internal/usecase/embedding"
	healthuc "github.com/eitan-ker/photo-selector-poc/internal/usecase/health"
	"github.com/eitan-ker/photo-selector-poc/internal/usecase/labels"
	searchuc "github.com/eitan-ker/photo-selector-poc/internal/usecase/search"
	"github.com/eitan-ker/photo-selector-poc/internal/version"
)

func main() {
	// .env is optional; environment wins over file values either way.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	var (
		folder      = flag.String("folder", "", "folder with images to search")
		query       = flag.String("query", "", "free-text query to rank images by")
		threshold   = flag.Float64("threshold", cfg.Search.Threshold, "minimum similarity score in [-1,1]")
		maxResults  = flag.Int("max", cfg.Search.MaxResults, "maximum number of results")
		classify    = flag.Bool("classify", cfg.Classifier.Enabled, "fuse zero-shot label scores into the ranking")
		weight      = flag.Float64("weight", cfg.Search.FusionWeight, "label score blend weight in [0,1]")
		topK        = flag.Int("top-k", cfg.Classifier.TopK, "predicted labels per image")
		serve       = flag.Bool("serve", false, "run the HTTP API server instead of a one-shot search")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("photofind %s\n", version.String())
		return
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting photofind",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	// Optional Redis store shared by the embedding cache and budget counters.
	var store db.Store
	if cfg.Cache.Enabled {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Single BudgetTracker shared by the whole embedder chain.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	embedder := buildEmbedder(base, cfg, store, budgetChecker, logger)

	var classifier searchuc.Classifier
	if *classify {
		vocab, err := labels.LoadVocabulary(cfg.Classifier.Vocabulary)
		if err != nil {
			logger.Fatal("Failed to load label vocabulary", zap.Error(err))
		}
		table, err := labels.NewTable(ctx, embedder, vocab)
		if err != nil {
			logger.Fatal("Failed to build label table",
				zap.Int("vocabulary_size", len(vocab)),
				zap.Error(err),
			)
		}
		classifier = labels.NewClassifier(table, logger)
		logger.Info("Label table ready",
			zap.Int("labels", table.Len()),
			zap.Int("dimensions", table.Dim()),
		)
	}

	repo := gallery.New(true)

	svc := searchuc.New(repo, embedder, classifier, logger).
		WithDecodePolicy(cfg.Search.OnDecodeError == config.DecodeErrorSkip)

	if *serve {
		runServe(cfg, svc, store, base, logger)
		return
	}

	if err := runSearch(ctx, svc, *folder, *query, *threshold, *maxResults, *classify, *weight, *topK); err != nil {
		logger.Error("Search failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, domain.ErrDirectoryNotFound) {
			fmt.Fprintln(os.Stderr, "hint: create the folder or point -folder at an existing directory")
		}
		os.Exit(1)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	base *openaiEmb.Embedder,
	cfg config.Config,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	var inner interface {
		domain.Embedder
		domain.ImageEmbedder
	} = base
	if store != nil {
		inner = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger,
	)
}

// runSearch executes a one-shot CLI search and prints a ranked table.
func runSearch(
	ctx context.Context,
	svc *searchuc.Service,
	folder, query string,
	threshold float64, maxResults int,
	classify bool, weight float64, topK int,
) error {
	req, err := domsearch.NewRequest(folder, query, threshold, maxResults, classify, weight, topK)
	if err != nil {
		return err
	}

	resp, err := svc.Search(ctx, &req)
	if err != nil {
		return err
	}

	printResults(resp, classify)
	return nil
}

func printResults(resp searchuc.Response, classify bool) {
	stats := &resp.Stats
	fmt.Printf("Query: %q\n", stats.Query())
	fmt.Printf("Scanned %d images, %d matching (%.2fs)\n\n",
		stats.TotalImages(), stats.MatchingImages(), stats.Elapsed().Seconds())

	if len(resp.Results) == 0 {
		fmt.Println("No matching images.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if classify {
		fmt.Fprintln(w, "RANK\tSCORE\tVISUAL\tFILE\tLABELS")
		for i := range resp.Results {
			r := &resp.Results[i]
			fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%s\t%s\n",
				r.Rank(), r.Similarity(), r.VisualScore(), r.FileName(), joinLabels(r.Labels()))
		}
	} else {
		fmt.Fprintln(w, "RANK\tSCORE\tFILE")
		for i := range resp.Results {
			r := &resp.Results[i]
			fmt.Fprintf(w, "%d\t%.4f\t%s\n", r.Rank(), r.Similarity(), r.FileName())
		}
	}
	_ = w.Flush()
}

func joinLabels(labels []string) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += ", "
		}
		out += l
	}
	return out
}

// runServe starts the HTTP API server with graceful shutdown.
func runServe(
	cfg config.Config,
	svc *searchuc.Service,
	store db.Store,
	base *openaiEmb.Embedder,
	logger *zap.Logger,
) {
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, base)

	server := chiTransport.NewServer(svc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
