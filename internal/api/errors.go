// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/intake/internal/backend"
	"github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/poller"
	"github.com/ManuGH/intake/internal/session"
	"github.com/ManuGH/intake/internal/submission"
)

// ErrBadRequest marks malformed request bodies.
var ErrBadRequest = errors.New("api: malformed request")

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error to its status, machine code and operator text.
func classify(err error) (int, string, string) {
	var tooBig *http.MaxBytesError
	switch {
	// Size limits come first: an oversized body also carries ErrBadRequest.
	case errors.Is(err, session.ErrDraftTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, "too_large", err.Error()
	case errors.Is(err, submission.ErrEmptySubmission):
		return http.StatusBadRequest, "empty_submission", session.MsgEmptySubmission
	case errors.Is(err, submission.ErrUnknownOption):
		return http.StatusBadRequest, "unknown_option", err.Error()
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, session.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", err.Error()
	case errors.Is(err, session.ErrSubmitInFlight):
		return http.StatusConflict, "submit_in_flight", session.MsgSubmitInFlight
	case errors.Is(err, session.ErrNotMounted):
		return http.StatusConflict, "diagnostics_not_mounted", err.Error()
	case errors.Is(err, poller.ErrThrottled):
		return http.StatusTooManyRequests, "refresh_throttled", err.Error()
	case errors.Is(err, backend.ErrSubmissionFailed):
		return http.StatusBadGateway, "submission_failed", session.MsgSubmitFailed
	}
	return http.StatusInternalServerError, "internal_error", "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind, detail := classify(err)
	logger := log.WithContext(r.Context(), s.logger)
	ev := logger.Debug()
	if code >= http.StatusInternalServerError {
		ev = logger.Warn()
	}
	ev.Err(err).Str(log.FieldEvent, "api.error").Int("status", code).Str("kind", kind).Msg("request failed")

	if code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, code, errorBody{Error: kind, Detail: detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
