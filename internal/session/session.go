// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session owns the dashboard's mutable state: the draft, the active
// project and the two registry schedulers (tracking and diagnostics).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/intake/internal/backend"
	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/pipeline"
	"github.com/ManuGH/intake/internal/poller"
	"github.com/ManuGH/intake/internal/submission"
)

// Scheduler names, also used as metric labels.
const (
	TrackingScheduler    = "tracking"
	DiagnosticsScheduler = "diagnostics"
)

// Backend is the subset of the backend client the session needs.
type Backend interface {
	Submit(ctx context.Context, p submission.Payload) (*backend.SubmitResult, error)
	ListJobs(ctx context.Context) (*pipeline.Snapshot, error)
}

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	TrackInterval       time.Duration
	DiagnosticsInterval time.Duration
	RefreshRate         rate.Limit
	RefreshBurst        int
	MaxDraftBytes       int64
}

func (o Options) withDefaults() Options {
	if o.TrackInterval <= 0 {
		o.TrackInterval = 4 * time.Second
	}
	if o.DiagnosticsInterval <= 0 {
		o.DiagnosticsInterval = 8 * time.Second
	}
	if o.RefreshRate <= 0 {
		o.RefreshRate = rate.Limit(1)
	}
	if o.RefreshBurst <= 0 {
		o.RefreshBurst = 3
	}
	if o.MaxDraftBytes <= 0 {
		o.MaxDraftBytes = 512 << 20
	}
	return o
}

// Session is safe for concurrent use.
type Session struct {
	ctx     context.Context
	backend Backend
	opts    Options
	logger  zerolog.Logger

	tracking    *poller.Scheduler
	diagnostics *poller.Scheduler

	// mu guards the draft, the active project id, the status message and the
	// submitting flag. It is never held across a network call or while
	// stopping a scheduler.
	mu         sync.Mutex
	draft      *submission.Draft
	active     string
	message    *Message
	submitting bool

	// switchMu serialises active project changes so scheduler start/stop
	// follows the order of the calls.
	switchMu sync.Mutex

	mountMu sync.Mutex
	mounted bool
}

// New creates a session. Schedulers run under ctx until Close.
func New(ctx context.Context, b Backend, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		ctx:     ctx,
		backend: b,
		opts:    opts,
		logger:  xglog.WithComponent("session"),
		draft:   submission.NewDraft(),
	}
	s.tracking = poller.New(TrackingScheduler, opts.TrackInterval, b.ListJobs,
		poller.WithOnUpdate(s.observeTracking),
	)
	s.diagnostics = poller.New(DiagnosticsScheduler, opts.DiagnosticsInterval, b.ListJobs,
		poller.WithRefreshLimit(opts.RefreshRate, opts.RefreshBurst),
	)
	return s
}

// Close stops both schedulers.
func (s *Session) Close() {
	s.tracking.Stop()
	s.diagnostics.Stop()
}

// SchedulerStatus is the read-only face of a session scheduler.
type SchedulerStatus interface {
	Name() string
	Interval() time.Duration
	State() poller.State
}

// Schedulers returns the tracking and diagnostics schedulers for status reporting.
func (s *Session) Schedulers() []SchedulerStatus {
	return []SchedulerStatus{s.tracking, s.diagnostics}
}
