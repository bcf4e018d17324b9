// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles the dashboard daemon and runs its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/intake/internal/api"
	"github.com/ManuGH/intake/internal/backend"
	"github.com/ManuGH/intake/internal/config"
	"github.com/ManuGH/intake/internal/health"
	"github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/platform/httpx"
	"github.com/ManuGH/intake/internal/resilience"
	"github.com/ManuGH/intake/internal/session"
	"github.com/ManuGH/intake/internal/telemetry"
)

// ServiceName identifies the daemon in logs and traces.
const ServiceName = "intake"

// App owns every long-lived component of a running daemon.
type App struct {
	cfg     config.AppConfig
	logger  zerolog.Logger
	manager Manager
	backend *backend.Client
	session *session.Session
}

// NewBackend builds the backend client described by cfg.
func NewBackend(cfg config.BackendConfig) (*backend.Client, error) {
	return backend.New(cfg.URL,
		backend.WithHTTPClient(httpx.NewClient(cfg.Timeout)),
		backend.WithUploadClient(httpx.NewUploadClient()),
		backend.WithSubmitTimeout(cfg.SubmitTimeout),
		backend.WithBreaker(resilience.NewCircuitBreaker("backend_submit", cfg.BreakerThreshold, cfg.BreakerReset)),
	)
}

// NewApp wires the daemon from cfg. Nothing listens until Run.
func NewApp(ctx context.Context, cfg config.AppConfig) (*App, error) {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	client, err := NewBackend(cfg.Backend)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	// Schedulers outlive request contexts; Close stops them.
	sess := session.New(context.WithoutCancel(ctx), client, session.Options{
		TrackInterval:       cfg.Polling.TrackInterval,
		DiagnosticsInterval: cfg.Polling.DiagnosticsInterval,
		RefreshRate:         rate.Limit(cfg.Polling.RefreshRPS),
		RefreshBurst:        cfg.Polling.RefreshBurst,
		MaxDraftBytes:       cfg.Server.MaxUploadBytes,
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBackendChecker(func(ctx context.Context) error {
		_, err := client.ListJobs(ctx)
		return err
	}, 2*time.Second))
	for _, sc := range sess.Schedulers() {
		hm.RegisterChecker(health.NewSchedulerChecker(sc))
	}

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = ServiceName
	}
	srv := api.New(api.Config{
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		SubmitPerMinute: cfg.Server.SubmitPerMinute,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		TracingService:  tracingService,
	}, sess, hm)

	mgr, err := NewManager(Deps{
		Logger:         logger,
		Server:         cfg.Server,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		sess.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("session", func(context.Context) error {
		sess.Close()
		return nil
	})

	return &App{cfg: cfg, logger: logger, manager: mgr, backend: client, session: sess}, nil
}

// Manager exposes the lifecycle manager.
func (a *App) Manager() Manager { return a.manager }

// Run serves until ctx is cancelled. A backend that is unreachable at startup
// is only reported; the dashboard still serves the draft.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().
		Str("version", a.cfg.Version).
		Str(log.FieldBaseURL, a.backend.BaseURL()).
		Msg("starting intake daemon")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.manager.Start(ctx)
	})
	g.Go(func() error {
		a.probeBackend(gctx)
		return nil
	})
	return g.Wait()
}

func (a *App) probeBackend(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := a.backend.ListJobs(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "startup.backend_unreachable").Msg("backend not reachable at startup")
		return
	}
	a.logger.Info().Int("jobs", snap.Len()).Str(log.FieldEvent, "startup.backend_ok").Msg("backend reachable")
}
