// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"
)

// CORS reflects allowed origins so a dashboard served from another origin can
// call the API. Requests without an Origin header pass untouched.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := originSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if normalized, ok := normalizeOrigin(origin); ok && (allowed["*"] || allowed[normalized]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, traceparent, tracestate")
				w.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			vary := w.Header().Get("Vary")
			switch {
			case vary == "":
				w.Header().Set("Vary", "Origin")
			case !strings.Contains(vary, "Origin"):
				w.Header().Set("Vary", vary+", Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
