// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backend talks to the ingestion backend: multipart submissions and
// job registry reads. It never holds registry state itself.
package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/platform/httpx"
	xgnet "github.com/ManuGH/intake/internal/platform/net"
	"github.com/ManuGH/intake/internal/resilience"
)

const (
	submitPath = "ingest/submit"
	jobsPath   = "diagnostics/jobs"

	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// Client is safe for concurrent use.
type Client struct {
	base          *url.URL
	http          *http.Client // short reads
	upload        *http.Client // submissions, no overall client deadline
	submitTimeout time.Duration
	breaker       *resilience.CircuitBreaker
	logger        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default hardened client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUploadClient replaces the client used for submissions.
func WithUploadClient(hc *http.Client) Option {
	return func(c *Client) { c.upload = hc }
}

// WithSubmitTimeout bounds each submission, upload included. Zero leaves the
// caller's context as the only deadline.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Client) { c.submitTimeout = d }
}

// WithBreaker replaces the submission circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New returns a client for the backend rooted at baseURL (for example
// "http://localhost:8000/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := xgnet.ParseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	c := &Client{
		base:   u,
		logger: xglog.WithComponent("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpx.NewClient(0)
	}
	if c.upload == nil {
		c.upload = httpx.NewUploadClient()
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("backend_submit", 5, 30*time.Second)
	}
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(v)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
