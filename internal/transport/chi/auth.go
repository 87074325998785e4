package chi

import (
	"net/http"
	"strings"
)

// authExempt marks routes that must stay reachable without credentials;
// probes and scrapers do not carry API keys.
func authExempt(path string) bool {
	return path == "/health" || path == "/metrics"
}

// BearerAuthMiddleware validates Bearer tokens against the configured API
// keys. An empty key list disables authentication entirely.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	valid := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			valid[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		fn := func(w http.ResponseWriter, r *http.Request) {
			if authExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, codeBadRequest,
					"authorization requires a Bearer token")
				return
			}
			if _, known := valid[token]; !known {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
