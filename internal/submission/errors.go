// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import "errors"

var (
	// ErrEmptySubmission is returned by Build when the draft has no file and no URL text.
	ErrEmptySubmission = errors.New("add at least one file or URL before submitting")

	// ErrUnknownOption is returned for a classification value outside its closed option set.
	ErrUnknownOption = errors.New("unknown classification option")
)
