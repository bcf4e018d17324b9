package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/intake/internal/poller"
)

type staticChecker struct {
	name string
	res  CheckResult
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(context.Context) CheckResult { return c.res }

func TestHealthAlwaysOK(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(staticChecker{"backend", CheckResult{Status: StatusUnhealthy}})

	w := httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)

	w = httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "backend")
}

func TestReadyAggregation(t *testing.T) {
	tests := []struct {
		name      string
		checks    []CheckResult
		wantCode  int
		wantState Status
	}{
		{"none", nil, http.StatusOK, StatusHealthy},
		{"degraded", []CheckResult{{Status: StatusHealthy}, {Status: StatusDegraded}}, http.StatusOK, StatusDegraded},
		{"unhealthy", []CheckResult{{Status: StatusDegraded}, {Status: StatusUnhealthy}}, http.StatusServiceUnavailable, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("dev")
			for i, c := range tt.checks {
				m.RegisterChecker(staticChecker{name: string(rune('a' + i)), res: c})
			}
			w := httptest.NewRecorder()
			m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
		})
	}
}

func TestBackendChecker(t *testing.T) {
	ok := NewBackendChecker(func(context.Context) error { return nil }, 0)
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	down := NewBackendChecker(func(context.Context) error { return errors.New("connection refused") }, time.Second)
	res := down.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "connection refused", res.Error)

	var deadline bool
	slow := NewBackendChecker(func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	}, 50*time.Millisecond)
	slow.Check(context.Background())
	assert.True(t, deadline)
}

type fakeScheduler struct {
	interval time.Duration
	st       poller.State
}

func (f *fakeScheduler) Name() string { return "tracking" }
func (f *fakeScheduler) Interval() time.Duration { return f.interval }
func (f *fakeScheduler) State() poller.State { return f.st }

func TestSchedulerChecker(t *testing.T) {
	src := &fakeScheduler{interval: 4 * time.Second}
	c := NewSchedulerChecker(src)
	assert.Equal(t, "poller_tracking", c.Name())
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	src.st = poller.State{Running: true, Err: errors.New("503"), LastSuccess: time.Now()}
	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "polling failing, serving last snapshot", res.Message)

	src.st = poller.State{Running: true, LastSuccess: time.Now()}
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	src.st = poller.State{Running: true, LastSuccess: time.Now().Add(-time.Minute)}
	res = c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "polling every 4s")
}

func TestSchedulerCheckerOverPoller(t *testing.T) {
	p := poller.New("diagnostics", 8*time.Second, nil)
	c := NewSchedulerChecker(p)
	assert.Equal(t, "poller_diagnostics", c.Name())
	assert.Equal(t, "idle", c.Check(context.Background()).Message)
}
