// Package chi exposes the search service over HTTP for the serve mode.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	logpkg "github.com/eitan-ker/photo-selector-poc/internal/logger"
	"github.com/eitan-ker/photo-selector-poc/internal/metrics"
	healthuc "github.com/eitan-ker/photo-selector-poc/internal/usecase/health"
	searchuc "github.com/eitan-ker/photo-selector-poc/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeFolderNotFound         = "folder_not_found"
	codeImageDecodeFailed      = "image_decode_failed"
	codeVectorDimMismatch      = "vector_dim_mismatch"
	codeEmbeddingQuotaExceeded = "embedding_quota_exceeded"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeInternalError          = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDirectoryNotFound, http.StatusNotFound, codeFolderNotFound),
		sentinelHandler(domain.ErrImageDecode, http.StatusUnprocessableEntity, codeImageDecodeFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusPaymentRequired, codeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Router builds the chi router with middleware, auth, and all routes.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(middleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/api/v1/search", s.SearchFolder)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// searchRequest is the POST /api/v1/search body.
type searchRequest struct {
	Folder       string   `json:"folder"`
	Query        string   `json:"query"`
	Threshold    *float64 `json:"threshold,omitempty"`
	MaxResults   *int     `json:"max_results,omitempty"`
	Classify     bool     `json:"classify,omitempty"`
	FusionWeight *float64 `json:"fusion_weight,omitempty"`
	TopKLabels   *int     `json:"top_k_labels,omitempty"`
}

type searchResultItem struct {
	Path        string   `json:"path"`
	FileName    string   `json:"file_name"`
	Rank        int      `json:"rank"`
	Similarity  float64  `json:"similarity"`
	VisualScore float64  `json:"visual_score"`
	AuxScore    float64  `json:"aux_score,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

type searchStats struct {
	TotalImages    int    `json:"total_images"`
	MatchingImages int    `json:"matching_images"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Query          string `json:"query"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Stats   searchStats        `json:"stats"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchFolder handles POST /api/v1/search.
func (s *Server) SearchFolder(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	domReq, err := requestFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &domReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, responseToJSON(resp))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func requestFromJSON(req searchRequest) (domsearch.Request, error) {
	threshold := domsearch.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	maxResults := domsearch.DefaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}
	fusionWeight := domsearch.DefaultFusionWeight
	if req.FusionWeight != nil {
		fusionWeight = *req.FusionWeight
	}
	topK := 0
	if req.TopKLabels != nil {
		topK = *req.TopKLabels
	}

	return domsearch.NewRequest(
		req.Folder, req.Query, threshold, maxResults,
		req.Classify, fusionWeight, topK,
	)
}

func responseToJSON(resp searchuc.Response) searchResponse {
	items := make([]searchResultItem, len(resp.Results))
	for i := range resp.Results {
		res := &resp.Results[i]
		items[i] = searchResultItem{
			Path:        res.Path(),
			FileName:    res.FileName(),
			Rank:        res.Rank(),
			Similarity:  res.Similarity(),
			VisualScore: res.VisualScore(),
			AuxScore:    res.AuxScore(),
			Labels:      res.Labels(),
		}
	}

	return searchResponse{
		Results: items,
		Stats: searchStats{
			TotalImages:    resp.Stats.TotalImages(),
			MatchingImages: resp.Stats.MatchingImages(),
			ElapsedMs:      resp.Stats.Elapsed().Milliseconds(),
			Query:          resp.Stats.Query(),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDirectoryNotFound,
		domain.ErrImageDecode,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// jsonRecoverer converts panics into JSON 500 responses.
func jsonRecoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := middleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
