// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/intake/internal/backend"
	"github.com/ManuGH/intake/internal/session"
)

type submitResponse struct {
	Result  *backend.SubmitResult `json:"result"`
	Message *session.Message      `json:"message,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := s.dash.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Result: res, Message: s.dash.Draft().Message})
}
