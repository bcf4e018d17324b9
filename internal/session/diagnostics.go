// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"slices"
	"time"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/pipeline"
	"github.com/ManuGH/intake/internal/poller"
)

// DiagnosticsView lists every job the backend knows, in backend order.
type DiagnosticsView struct {
	Jobs        []pipeline.JobRecord `json:"jobs"`
	Mounted     bool                 `json:"mounted"`
	Loaded      bool                 `json:"loaded"`
	Fetching    bool                 `json:"fetching"`
	Degraded    bool                 `json:"degraded"`
	Error       string               `json:"error,omitempty"`
	LastUpdated *time.Time           `json:"last_updated,omitempty"`
}

// MountDiagnostics starts diagnostics polling. Mounting twice is a no-op.
func (s *Session) MountDiagnostics() DiagnosticsView {
	s.mountMu.Lock()
	if !s.mounted {
		s.mounted = true
		s.diagnostics.Start(s.ctx)
		s.logger.Info().Str(xglog.FieldEvent, "diagnostics.mounted").Msg("diagnostics polling started")
	}
	s.mountMu.Unlock()
	return s.Diagnostics()
}

// UnmountDiagnostics stops diagnostics polling and discards any late response.
func (s *Session) UnmountDiagnostics() DiagnosticsView {
	s.mountMu.Lock()
	if s.mounted {
		s.mounted = false
		s.diagnostics.Stop()
		s.logger.Info().Str(xglog.FieldEvent, "diagnostics.unmounted").Msg("diagnostics polling stopped")
	}
	s.mountMu.Unlock()
	return s.Diagnostics()
}

func (s *Session) isMounted() bool {
	s.mountMu.Lock()
	defer s.mountMu.Unlock()
	return s.mounted
}

// Diagnostics returns the last diagnostics snapshot with its fetch flags.
func (s *Session) Diagnostics() DiagnosticsView {
	st := s.diagnostics.State()
	out := DiagnosticsView{
		Jobs:     []pipeline.JobRecord{},
		Mounted:  s.isMounted(),
		Loaded:   st.Snapshot != nil,
		Fetching: st.Fetching,
		Degraded: st.Degraded(),
	}
	if st.Snapshot != nil {
		out.Jobs = slices.Clone(st.Snapshot.Jobs)
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	if !st.LastSuccess.IsZero() {
		t := st.LastSuccess
		out.LastUpdated = &t
	}
	return out
}

// RefreshDiagnostics polls now and waits for the result. A failed poll is
// reported through the Degraded flag, not the error.
func (s *Session) RefreshDiagnostics(ctx context.Context) (DiagnosticsView, error) {
	if !s.isMounted() {
		return s.Diagnostics(), ErrNotMounted
	}
	_, err := s.diagnostics.RefreshWait(ctx)
	if errors.Is(err, poller.ErrNotRunning) {
		err = ErrNotMounted
	}
	return s.Diagnostics(), err
}
