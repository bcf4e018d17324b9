// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/intake/internal/poller"
)

// ProbeFunc reports reachability of a dependency.
type ProbeFunc func(ctx context.Context) error

// BackendChecker probes the ingestion backend with a bounded call.
type BackendChecker struct {
	probe   ProbeFunc
	timeout time.Duration
}

// NewBackendChecker wraps probe. A non-positive timeout defaults to 2s.
func NewBackendChecker(probe ProbeFunc, timeout time.Duration) *BackendChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &BackendChecker{probe: probe, timeout: timeout}
}

func (c *BackendChecker) Name() string { return "backend" }

func (c *BackendChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "backend unreachable"}
	}
	return CheckResult{Status: StatusHealthy, Message: "backend reachable"}
}

// SchedulerSource is the read-only face of a registry scheduler.
type SchedulerSource interface {
	Name() string
	Interval() time.Duration
	State() poller.State
}

// staleAfter is how many missed intervals make a running scheduler stale.
const staleAfter = 3

// SchedulerChecker reports a registry scheduler. Failed or stale polls degrade
// it but never make the daemon unready, since the last known snapshot is still
// served.
type SchedulerChecker struct {
	src SchedulerSource
}

// NewSchedulerChecker creates a checker over src.
func NewSchedulerChecker(src SchedulerSource) *SchedulerChecker {
	return &SchedulerChecker{src: src}
}

func (c *SchedulerChecker) Name() string { return "poller_" + c.src.Name() }

func (c *SchedulerChecker) Check(context.Context) CheckResult {
	st := c.src.State()
	switch {
	case !st.Running:
		return CheckResult{Status: StatusHealthy, Message: "idle"}
	case st.Err != nil:
		msg := "polling failing, serving last snapshot"
		if st.LastSuccess.IsZero() {
			msg = "polling failing, no snapshot yet"
		}
		return CheckResult{Status: StatusDegraded, Error: st.Err.Error(), Message: msg}
	case st.LastSuccess.IsZero():
		return CheckResult{Status: StatusHealthy, Message: "waiting for first poll"}
	}
	age := time.Since(st.LastSuccess)
	if interval := c.src.Interval(); interval > 0 && age > staleAfter*interval {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last success %s ago, polling every %s", age.Truncate(time.Second), interval),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("last success %s ago", age.Truncate(time.Second))}
}
