// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net holds URL helpers shared by the backend client and the CLI.
package net

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidBaseURL classifies unusable service base URLs.
var ErrInvalidBaseURL = errors.New("invalid base url")

// SanitizeURL removes user info and query parameters for safe logging.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	return parsedURL.String()
}

// ParseBaseURL validates a service root such as "http://localhost:8000/api".
// The scheme must be http or https and a host is required. Queries and
// fragments are rejected since endpoint paths are joined onto the result.
// A trailing slash is dropped.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidBaseURL, SanitizeURL(raw))
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidBaseURL, SanitizeURL(raw))
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("%w: %q: query and fragment not allowed", ErrInvalidBaseURL, SanitizeURL(raw))
	}
	return u, nil
}
