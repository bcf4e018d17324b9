// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "errors"

var (
	// ErrSubmitInFlight is returned while a previous submission has not completed.
	ErrSubmitInFlight = errors.New("session: a submission is already in flight")

	// ErrEntryNotFound is returned when removing an unknown draft entry.
	ErrEntryNotFound = errors.New("session: draft entry not found")

	// ErrDraftTooLarge is returned when added files would exceed the draft byte budget.
	ErrDraftTooLarge = errors.New("session: draft exceeds upload limit")

	// ErrNotMounted is returned when refreshing diagnostics that are not mounted.
	ErrNotMounted = errors.New("session: diagnostics view not mounted")
)
