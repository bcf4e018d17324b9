// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmissionFailed covers every way an ingest submission can fail:
	// transport, non-2xx, malformed body, or an open breaker.
	ErrSubmissionFailed = errors.New("backend: submission failed")

	// ErrFetchFailed covers every way a job registry fetch can fail.
	ErrFetchFailed = errors.New("backend: job list fetch failed")
)

// Error carries the context of a failed backend call. It matches its sentinel
// and the underlying cause with errors.Is.
type Error struct {
	Sentinel error
	Op       string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Sentinel, e.Op)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}
