// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// OriginCheck rejects state-changing browser requests from foreign origins.
//
// Unsafe methods carrying an Origin (or Referer) must match the request host
// or an allowed origin. Requests with neither header come from non-browser
// clients such as the CLI and are let through.
func OriginCheck(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := originSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin, present := requestOrigin(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if origin == "" || !(allowed["*"] || allowed[origin] || origin == sameOrigin(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":  "origin_forbidden",
					"detail": "origin not trusted",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originSet(origins []string) map[string]bool {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			set["*"] = true
			continue
		}
		if normalized, ok := normalizeOrigin(o); ok {
			set[normalized] = true
		}
	}
	return set
}

// requestOrigin returns the normalized origin and whether the request named
// one at all. A present but malformed origin yields ("", true).
func requestOrigin(r *http.Request) (string, bool) {
	if raw := r.Header.Get("Origin"); raw != "" {
		o, _ := normalizeOrigin(raw)
		return o, true
	}
	raw := r.Header.Get("Referer")
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", true
	}
	o, _ := normalizeOrigin(u.Scheme + "://" + u.Host)
	return o, true
}

// sameOrigin ignores forwarding headers; proxies must list the public origin
// in the allow list.
func sameOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	o, _ := normalizeOrigin(scheme + "://" + r.Host)
	return o
}

func normalizeOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	port := u.Port()
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return "", false
		}
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	authority := host
	if port != "" {
		authority = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		authority = "[" + host + "]"
	}
	return scheme + "://" + authority, true
}
