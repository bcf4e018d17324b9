// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package poller keeps a job registry snapshot fresh by polling the backend on
// a fixed interval. Each scheduler runs one goroutine and fetches inline, so
// polls are strictly sequential and at most one request is outstanding.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/metrics"
	"github.com/ManuGH/intake/internal/pipeline"
	"github.com/ManuGH/intake/internal/telemetry"
)

// FetchFunc retrieves the whole job registry.
type FetchFunc func(ctx context.Context) (*pipeline.Snapshot, error)

// UpdateFunc observes a newly applied snapshot. prev is nil on the first success.
// It runs on the scheduler goroutine and must not call Stop or Restart.
type UpdateFunc func(prev, next *pipeline.Snapshot)

// State is a point-in-time copy of the scheduler's observable state.
type State struct {
	// Snapshot is the last successfully fetched registry, nil before the first success.
	Snapshot *pipeline.Snapshot
	// Fetching is true while a request is outstanding.
	Fetching bool
	// Err is the error of the most recent poll, nil after a success.
	Err error
	// LastSuccess and LastAttempt are zero until the first poll.
	LastSuccess time.Time
	LastAttempt time.Time
	// Generation increments on every Start and Stop.
	Generation uint64
	Running    bool
}

// Degraded reports whether the last poll failed.
func (s State) Degraded() bool { return s.Err != nil }

// Scheduler periodically runs a FetchFunc while started.
type Scheduler struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	onUpdate UpdateFunc
	limiter  *rate.Limiter
	logger   zerolog.Logger
	group    singleflight.Group

	refresh chan struct{}

	// hookMu is held around onUpdate and by Stop while it bumps the generation,
	// so no hook starts for a generation that has been dropped.
	hookMu sync.Mutex

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	started   uint64
	completed uint64
	notify    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithOnUpdate registers a hook for newly applied snapshots.
func WithOnUpdate(fn UpdateFunc) Option {
	return func(s *Scheduler) { s.onUpdate = fn }
}

// WithRefreshLimit bounds manual refreshes to r per second with the given burst.
func WithRefreshLimit(r rate.Limit, burst int) Option {
	return func(s *Scheduler) { s.limiter = rate.NewLimiter(r, burst) }
}

// New creates a stopped scheduler.
func New(name string, interval time.Duration, fetch FetchFunc, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	s := &Scheduler{
		name:     name,
		interval: interval,
		fetch:    fetch,
		limiter:  rate.NewLimiter(rate.Limit(1), 2),
		logger:   xglog.WithComponent("poller").With().Str(xglog.FieldScheduler, name).Logger(),
		refresh:  make(chan struct{}, 1),
		notify:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string { return s.name }

// Interval returns the polling interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start begins polling immediately and then every interval until Stop or ctx
// is done. Starting a running scheduler is a no-op. The failure of an earlier
// run is cleared; the last snapshot is kept.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	select {
	case <-s.refresh:
	default:
	}

	s.state.Generation++
	s.state.Running = true
	s.state.Err = nil
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.state.Generation, s.done)

	metrics.SetPollRunning(s.name, true)
	s.logger.Debug().Str(xglog.FieldEvent, "poll.started").Uint64("generation", s.state.Generation).Msg("scheduler started")
}

// Stop cancels the in-flight request, waits for the loop to exit and discards
// any late result. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.hookMu.Lock()
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		s.hookMu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.state.Generation++
	s.state.Running = false
	s.state.Fetching = false
	s.mu.Unlock()
	s.hookMu.Unlock()

	cancel()
	<-done

	metrics.SetPollRunning(s.name, false)
	s.logger.Debug().Str(xglog.FieldEvent, "poll.stopped").Msg("scheduler stopped")
}

// Restart stops and starts the scheduler, dropping any in-flight result.
func (s *Scheduler) Restart(ctx context.Context) {
	s.Stop()
	s.Start(ctx)
}

// State returns a copy of the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh asks the loop to poll now instead of waiting for the next tick.
func (s *Scheduler) Refresh() error {
	_, _, err := s.trigger()
	return err
}

// RefreshWait triggers a refresh and waits for a poll that started after the
// trigger to finish. Concurrent callers share one refresh.
func (s *Scheduler) RefreshWait(ctx context.Context) (State, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		target, done, err := s.trigger()
		if err != nil {
			return s.State(), err
		}
		return s.waitFor(target, done)
	})

	select {
	case res := <-ch:
		st, _ := res.Val.(State)
		return st, res.Err
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

func (s *Scheduler) trigger() (uint64, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return 0, nil, ErrNotRunning
	}
	if !s.limiter.Allow() {
		return 0, nil, ErrThrottled
	}

	select {
	case s.refresh <- struct{}{}:
	default:
	}
	return s.started + 1, s.done, nil
}

func (s *Scheduler) waitFor(target uint64, done chan struct{}) (State, error) {
	for {
		s.mu.Lock()
		if s.completed >= target {
			st := s.state
			s.mu.Unlock()
			return st, nil
		}
		notify := s.notify
		s.mu.Unlock()

		select {
		case <-notify:
		case <-done:
			return s.State(), ErrNotRunning
		}
	}
}

func (s *Scheduler) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	s.poll(ctx, gen)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.refresh:
			ticker.Reset(s.interval)
		}
		s.poll(ctx, gen)
	}
}

func (s *Scheduler) poll(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if s.state.Generation != gen {
		s.mu.Unlock()
		return
	}
	start := time.Now()
	s.state.Fetching = true
	s.state.LastAttempt = start
	s.started++
	s.mu.Unlock()

	fctx, span := telemetry.Tracer("intake/poller").Start(ctx, "poll."+s.name)
	span.SetAttributes(telemetry.PollAttributes(s.name, gen)...)
	snap, err := s.fetch(fctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
	}
	span.End()
	elapsed := time.Since(start)

	s.mu.Lock()
	s.completed++
	close(s.notify)
	s.notify = make(chan struct{})

	if s.state.Generation != gen || ctx.Err() != nil {
		s.mu.Unlock()
		metrics.RecordPoll(s.name, metrics.PollResultStale, elapsed)
		s.logger.Debug().Str(xglog.FieldEvent, "poll.dropped_stale").Uint64("generation", gen).Msg("discarded result from a stopped poll")
		return
	}

	s.state.Fetching = false
	wasDegraded := s.state.Err != nil
	if err != nil {
		s.state.Err = err
		s.mu.Unlock()

		metrics.RecordPoll(s.name, metrics.PollResultError, elapsed)
		ev := s.logger.Warn()
		if wasDegraded {
			ev = s.logger.Debug()
		}
		ev.Err(err).Str(xglog.FieldEvent, "poll.failed").Dur("duration", elapsed).Msg("job registry poll failed, keeping last known data")
		return
	}

	prev := s.state.Snapshot
	s.state.Snapshot = snap
	s.state.Err = nil
	s.state.LastSuccess = time.Now()
	hook := s.onUpdate
	s.mu.Unlock()

	metrics.RecordPoll(s.name, metrics.PollResultSuccess, elapsed)
	metrics.SetRegistryJobs(s.name, snap.Len())
	if wasDegraded {
		s.logger.Info().Str(xglog.FieldEvent, "poll.recovered").Msg("job registry poll recovered")
	}
	if hook != nil {
		s.notifyUpdate(gen, hook, prev, snap)
	}
}

func (s *Scheduler) notifyUpdate(gen uint64, hook UpdateFunc, prev, next *pipeline.Snapshot) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()

	s.mu.Lock()
	current := s.state.Generation == gen
	s.mu.Unlock()
	if !current {
		s.logger.Debug().Str(xglog.FieldEvent, "poll.dropped_stale").Uint64("generation", gen).Msg("skipped update hook for a stopped poll")
		return
	}
	hook(prev, next)
}
