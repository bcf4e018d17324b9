// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"strings"
	"time"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/metrics"
	"github.com/ManuGH/intake/internal/pipeline"
)

// PipelineView is what the pipeline panel renders.
type PipelineView struct {
	pipeline.View
	Header      string     `json:"header"`
	Fetching    bool       `json:"fetching"`
	Degraded    bool       `json:"degraded"`
	Error       string     `json:"error,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// ActiveProject returns the tracked project id, empty when none.
func (s *Session) ActiveProject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveProject replaces the tracked project. An empty id stops tracking.
// Any poll in flight for the previous project is cancelled and its result discarded.
func (s *Session) SetActiveProject(id string) {
	id = strings.TrimSpace(id)

	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.mu.Lock()
	prev := s.active
	s.active = id
	s.mu.Unlock()

	if prev == id {
		if id != "" {
			s.tracking.Start(s.ctx)
		}
		return
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "pipeline.active_changed").
		Str(xglog.FieldOldState, prev).
		Str(xglog.FieldNewState, id).
		Msg("active project changed")

	if id == "" {
		s.tracking.Stop()
		return
	}
	s.tracking.Restart(s.ctx)
}

// Pipeline resolves the view for the active project against the latest snapshot.
func (s *Session) Pipeline() PipelineView {
	active := s.ActiveProject()
	st := s.tracking.State()

	view := pipeline.Resolve(active, st.Snapshot)
	out := PipelineView{
		View:   view,
		Header: TrackingHeader(view),
	}
	if active == "" {
		return out
	}
	out.Fetching = st.Fetching
	out.Degraded = st.Degraded()
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	if !st.LastSuccess.IsZero() {
		t := st.LastSuccess
		out.LastUpdated = &t
	}
	return out
}

// observeTracking reports stage regressions of the active job between polls.
func (s *Session) observeTracking(prev, next *pipeline.Snapshot) {
	active := s.ActiveProject()
	before, ok := prev.FindByProject(active)
	if !ok {
		return
	}
	after, ok := next.FindByProject(active)
	if !ok {
		return
	}
	for _, r := range pipeline.Regressions(before, after) {
		metrics.RecordStageRegression(string(r.Stage))
		s.logger.Warn().
			Str(xglog.FieldEvent, "pipeline.stage_regressed").
			Str(xglog.FieldProjectID, active).
			Str(xglog.FieldJobID, after.JobID).
			Str(xglog.FieldStage, string(r.Stage)).
			Str(xglog.FieldOldState, string(r.From)).
			Str(xglog.FieldNewState, string(r.To)).
			Msg("stage left a terminal status")
	}
}
