// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/metrics"
	"github.com/ManuGH/intake/internal/resilience"
	"github.com/ManuGH/intake/internal/submission"
	"github.com/ManuGH/intake/internal/telemetry"
)

// SubmitResult is the backend's acknowledgement of a queued submission.
type SubmitResult struct {
	Status      string           `json:"status"`
	JobID       string           `json:"job_id"`
	ProjectID   string           `json:"project_id"`
	ProjectSlug string           `json:"project_slug"`
	ProjectDir  string           `json:"project_dir"`
	Files       []map[string]any `json:"files"`
	References  []map[string]any `json:"references"`
}

// Submit posts p as multipart/form-data to the ingest endpoint. It does not
// retry; every failure matches ErrSubmissionFailed.
func (c *Client) Submit(ctx context.Context, p submission.Payload) (*SubmitResult, error) {
	var bytes int64
	for _, f := range p.Files {
		bytes += f.Size()
	}

	ctx, span := telemetry.Tracer("intake/backend").Start(ctx, "backend.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SubmitAttributes(len(p.Files), bytes, p.ReferenceURLs != "")...),
	)
	defer span.End()

	logger := xglog.WithContext(ctx, c.logger)

	if c.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.submitTimeout)
		defer cancel()
	}

	var result *SubmitResult
	start := time.Now()
	err := c.breaker.Execute(func() error {
		var err error
		result, err = c.submit(ctx, p)
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = &Error{Sentinel: ErrSubmissionFailed, Op: "submit", Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "submit.failed").
			Int("files", len(p.Files)).
			Msg("ingest submission failed")
		return nil, err
	}

	metrics.ObserveSubmission(time.Since(start), bytes)
	span.SetAttributes(telemetry.JobAttributes(result.ProjectID, result.JobID)...)
	logger.Info().
		Str(xglog.FieldEvent, "submit.accepted").
		Str(xglog.FieldJobID, result.JobID).
		Str(xglog.FieldProjectID, result.ProjectID).
		Int("files", len(p.Files)).
		Int64("bytes", bytes).
		Msg("ingest submission accepted")
	return result, nil
}

func (c *Client) submit(ctx context.Context, p submission.Payload) (*SubmitResult, error) {
	body, contentType := encodeMultipart(p)
	defer func() { _ = body.Close() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(submitPath), body)
	if err != nil {
		return nil, &Error{Sentinel: ErrSubmissionFailed, Op: "submit", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if reqID := xglog.RequestIDFromContext(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, &Error{Sentinel: ErrSubmissionFailed, Op: "submit", Err: err}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Sentinel: ErrSubmissionFailed,
			Op:       "submit",
			Status:   resp.StatusCode,
			Body:     readErrorBody(resp.Body),
		}
	}

	var out SubmitResult
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, &Error{Sentinel: ErrSubmissionFailed, Op: "submit", Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.ProjectID == "" {
		return nil, &Error{Sentinel: ErrSubmissionFailed, Op: "submit", Status: resp.StatusCode, Err: errors.New("response missing project_id")}
	}
	return &out, nil
}

// encodeMultipart streams the payload through a pipe so file content is not
// copied into a second buffer.
func encodeMultipart(p submission.Payload) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, p))
	}()
	return pr, mw.FormDataContentType()
}

func writeParts(mw *multipart.Writer, p submission.Payload) error {
	for _, f := range p.Files {
		part, err := mw.CreateFormFile(submission.FieldFiles, f.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Content); err != nil {
			return err
		}
	}

	fields := p.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := mw.WriteField(name, fields[name]); err != nil {
			return err
		}
	}
	return mw.Close()
}
