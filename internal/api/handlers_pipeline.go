// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
)

type setActiveRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Pipeline())
}

// handleSetActive switches tracking; an empty project id stops it.
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dash.SetActiveProject(req.ProjectID)
	writeJSON(w, http.StatusOK, s.dash.Pipeline())
}

func (s *Server) handleGetDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Diagnostics())
}

func (s *Server) handleRefreshDiagnostics(w http.ResponseWriter, r *http.Request) {
	view, err := s.dash.RefreshDiagnostics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMountDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.MountDiagnostics())
}

func (s *Server) handleUnmountDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.UnmountDiagnostics())
}
