package security

import (
	"net/http"
	"strconv"

	"github.com/go-chi/cors"
)

// Headers sets response headers for a JSON-only API. HSTS is sent on TLS
// requests when HSTSMaxAge is positive.
type Headers struct {
	Enable                bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

// apiCSP forbids rendering responses as documents; the API never serves HTML.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	hsts := ""
	if h.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(h.HSTSMaxAge)
		if h.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", apiCSP)
		headers.Set("Cross-Origin-Resource-Policy", "cross-origin")
		if hsts != "" && r.TLS != nil {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CORS builds the storefront's cross-origin policy. An empty allowlist
// falls back to any origin without credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "Idempotent-Replay"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}
