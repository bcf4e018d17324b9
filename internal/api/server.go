// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the dashboard session as a JSON HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/intake/internal/backend"
	"github.com/ManuGH/intake/internal/control/middleware"
	"github.com/ManuGH/intake/internal/health"
	"github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/session"
	"github.com/ManuGH/intake/internal/submission"
)

// Dashboard is the session surface the handlers drive.
type Dashboard interface {
	Draft() session.DraftView
	AddFiles(files []submission.File) ([]string, error)
	RemoveFile(id string) error
	UpdateDraft(u session.DraftUpdate) (session.DraftView, error)
	ResetDraft() session.DraftView
	Submit(ctx context.Context) (*backend.SubmitResult, error)

	SetActiveProject(id string)
	Pipeline() session.PipelineView

	MountDiagnostics() session.DiagnosticsView
	UnmountDiagnostics() session.DiagnosticsView
	Diagnostics() session.DiagnosticsView
	RefreshDiagnostics(ctx context.Context) (session.DiagnosticsView, error)
}

// Config tunes the HTTP surface.
type Config struct {
	MaxUploadBytes  int64
	SubmitPerMinute int
	AllowedOrigins  []string
	// TracingService names server spans; empty disables tracing.
	TracingService string
}

// Server routes dashboard requests to a Dashboard.
type Server struct {
	cfg    Config
	dash   Dashboard
	health *health.Manager
	logger zerolog.Logger
}

// New creates a server. hm may be nil, in which case the probes report healthy.
func New(cfg Config, dash Dashboard, hm *health.Manager) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 512 << 20
	}
	if cfg.SubmitPerMinute <= 0 {
		cfg.SubmitPerMinute = 10
	}
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{
		cfg:    cfg,
		dash:   dash,
		health: hm,
		logger: log.WithComponent("api"),
	}
}

// Handler builds the routed handler with the ingress stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)

		r.Get("/draft", s.handleGetDraft)
		r.Put("/draft", s.handleUpdateDraft)
		r.Post("/draft/files", s.handleAddFiles)
		r.Delete("/draft/files/{id}", s.handleRemoveFile)
		r.Post("/draft/reset", s.handleResetDraft)

		r.With(middleware.SubmitRateLimit(s.cfg.SubmitPerMinute)).Post("/submit", s.handleSubmit)

		r.Get("/pipeline", s.handleGetPipeline)
		r.Put("/pipeline/active", s.handleSetActive)

		r.Get("/diagnostics/jobs", s.handleGetDiagnostics)
		r.Post("/diagnostics/refresh", s.handleRefreshDiagnostics)
		r.Post("/diagnostics/mount", s.handleMountDiagnostics)
		r.Delete("/diagnostics/mount", s.handleUnmountDiagnostics)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: "no such route"})
	})
	return r
}
