// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/intake/internal/log"
)

// ShutdownHook releases a resource during shutdown. Hooks run in reverse
// registration order.
type ShutdownHook func(ctx context.Context) error

// Manager runs the HTTP listeners and the shutdown sequence.
type Manager interface {
	// Start serves until ctx is cancelled or a listener fails, then shuts down.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
	// APIAddr is the bound API address once started.
	APIAddr() string
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type manager struct {
	deps   Deps
	logger zerolog.Logger

	apiServer     *http.Server
	metricsServer *http.Server
	apiAddr       string

	mu            sync.Mutex
	shutdownHooks []namedHook
	started       bool
	stopping      bool
}

// NewManager validates deps and creates a manager.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		deps:   deps,
		logger: deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.started = true
	m.mu.Unlock()

	cfg := m.deps.Server
	m.logger.Info().
		Str("listen", cfg.Listen).
		Str("metrics_listen", cfg.MetricsListen).
		Dur("shutdown_timeout", cfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.MetricsHandler != nil && cfg.MetricsListen != "" {
		srv, _, err := m.serve("metrics", cfg.MetricsListen, m.deps.MetricsHandler, errChan)
		if err != nil {
			return m.abort(ctx, err)
		}
		m.mu.Lock()
		m.metricsServer = srv
		m.mu.Unlock()
	}

	srv, addr, err := m.serve("api", cfg.Listen, m.deps.APIHandler, errChan)
	if err != nil {
		return m.abort(ctx, err)
	}
	m.mu.Lock()
	m.apiServer = srv
	m.apiAddr = addr
	m.mu.Unlock()

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		return m.abort(ctx, err)
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout+5*time.Second)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// abort shuts down what already runs and reports cause together with any
// shutdown failure.
func (m *manager) abort(ctx context.Context, cause error) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.deps.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := m.Shutdown(shutdownCtx); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// serve binds addr synchronously so bind errors surface from Start.
func (m *manager) serve(name, addr string, h http.Handler, errChan chan<- error) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("%s server: %w", name, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	bound := ln.Addr().String()
	m.logger.Info().Str("server", name).Str("addr", bound).Msg("server listening")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str(log.FieldEvent, name+".server.failed").Msg("server failed")
			errChan <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
	return srv, bound, nil
}

func (m *manager) APIAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiAddr
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	apiServer, metricsServer := m.apiServer, m.metricsServer
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.deps.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(shutdownCtx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		m.logger.Error().Int("error_count", len(errs)).Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("daemon manager stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
