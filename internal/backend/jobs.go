// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/pipeline"
)

// ListJobs fetches the full job registry. Jobs keep backend order.
func (c *Client) ListJobs(ctx context.Context) (*pipeline.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(jobsPath), nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrFetchFailed, Op: "list jobs", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if reqID := xglog.RequestIDFromContext(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Sentinel: ErrFetchFailed, Op: "list jobs", Err: err}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Sentinel: ErrFetchFailed,
			Op:       "list jobs",
			Status:   resp.StatusCode,
			Body:     readErrorBody(resp.Body),
		}
	}

	var snap pipeline.Snapshot
	if err := decodeJSON(resp.Body, &snap); err != nil {
		return nil, &Error{Sentinel: ErrFetchFailed, Op: "list jobs", Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if snap.Jobs == nil {
		snap.Jobs = []pipeline.JobRecord{}
	}
	snap.FetchedAt = time.Now()
	return &snap, nil
}
