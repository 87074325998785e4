package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newInstrumentedRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("results"))
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	r := newInstrumentedRouter()

	tests := []struct {
		method string
		path   string
		status string
	}{
		{"GET", "/healthz", "200"},
		{"POST", "/api/v1/search", "200"},
		{"GET", "/missing", "404"},
		{"GET", "/broken", "500"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status))
			if got < 1 {
				t.Errorf("requests_total{%s,%s,%s} = %f, want >= 1", tc.method, tc.path, tc.status, got)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration histogram observations")
	}
}

func TestMiddleware_ImplicitOKStatus(t *testing.T) {
	// A handler that writes a body without calling WriteHeader still counts
	// as 200.
	r := newInstrumentedRouter()

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if got < 1 {
		t.Errorf("requests_total for implicit 200 = %f, want >= 1", got)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/api/v1/search", "/api/v1/search"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := routeLabel(tc.input); got != tc.expected {
			t.Errorf("routeLabel(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestMetrics_ExposedNames(t *testing.T) {
	r := newInstrumentedRouter()
	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer,
		"photofind_http_requests_total",
		"photofind_http_request_duration_seconds",
	)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count == 0 {
		t.Error("expected http metrics in the default registry")
	}
}
