// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/intake/internal/backend"
	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/metrics"
	"github.com/ManuGH/intake/internal/submission"
)

// Submit builds the draft and sends it. Only one submission may be
// outstanding. On success the submitted files and URL text leave the draft
// and the new project becomes the active one; on failure the draft is kept.
func (s *Session) Submit(ctx context.Context) (*backend.SubmitResult, error) {
	logger := xglog.WithContext(ctx, s.logger)

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		metrics.RecordSubmission(metrics.SubmitResultInFlight)
		return nil, ErrSubmitInFlight
	}

	payload, err := submission.Build(s.draft)
	if err != nil {
		result := metrics.SubmitResultInvalid
		if errors.Is(err, submission.ErrEmptySubmission) {
			result = metrics.SubmitResultEmpty
			s.message = errorMessage(MsgEmptySubmission)
		} else {
			s.message = errorMessage(err.Error())
		}
		s.mu.Unlock()
		metrics.RecordSubmission(result)
		logger.Info().Err(err).Str(xglog.FieldEvent, "submit.rejected").Msg("draft not submitted")
		return nil, err
	}

	sent := s.draft.Entries()
	sentURLs := s.draft.URLText()
	s.submitting = true
	s.message = nil
	s.mu.Unlock()

	// The payload is already in memory, so the upload does not depend on the
	// caller staying connected. The HTTP client timeout bounds it.
	res, err := s.backend.Submit(context.WithoutCancel(ctx), payload)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.message = errorMessage(MsgSubmitFailed)
		s.mu.Unlock()

		metrics.RecordSubmission(metrics.SubmitResultFailed)
		if !errors.Is(err, backend.ErrSubmissionFailed) {
			err = fmt.Errorf("%w: %w", backend.ErrSubmissionFailed, err)
		}
		return nil, err
	}

	for _, e := range sent {
		s.draft.RemoveFile(e.ID)
	}
	if s.draft.URLText() == sentURLs {
		s.draft.SetURLText("")
	}
	s.message = queuedMessage(res.JobID, res.ProjectSlug)
	metrics.SetDraftFiles(len(s.draft.Entries()))
	s.mu.Unlock()

	metrics.RecordSubmission(metrics.SubmitResultQueued)
	logger.Info().
		Str(xglog.FieldEvent, "submit.queued").
		Str(xglog.FieldJobID, res.JobID).
		Str(xglog.FieldProjectID, res.ProjectID).
		Str("project_slug", res.ProjectSlug).
		Msg("ingestion queued")

	s.SetActiveProject(res.ProjectID)
	return res, nil
}
