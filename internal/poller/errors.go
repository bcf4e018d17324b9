// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package poller

import "errors"

var (
	// ErrNotRunning is returned when a refresh is requested from a stopped scheduler.
	ErrNotRunning = errors.New("poller: scheduler not running")

	// ErrThrottled is returned when manual refreshes exceed the configured rate.
	ErrThrottled = errors.New("poller: refresh throttled")
)
