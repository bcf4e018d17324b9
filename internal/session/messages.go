// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"fmt"

	"github.com/ManuGH/intake/internal/pipeline"
)

// Operator-facing texts.
const (
	MsgEmptySubmission = "Add at least one file or URL before submitting."
	MsgSubmitFailed    = "Failed to queue ingestion. Check diagnostics for more info."
	MsgSubmitInFlight  = "A submission is already in progress."
	MsgIdle            = "Prepare and process intake to start."
)

// Message kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Message is the status line shown under the submit form.
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func queuedMessage(jobID, projectSlug string) *Message {
	return &Message{Kind: KindSuccess, Text: fmt.Sprintf("Queued job %s for project %s.", jobID, projectSlug)}
}

func errorMessage(text string) *Message {
	return &Message{Kind: KindError, Text: text}
}

// TrackingHeader renders the pipeline panel header for v.
func TrackingHeader(v pipeline.View) string {
	if v.ProjectID == "" {
		return MsgIdle
	}
	status := string(v.JobStatus)
	if status == "" {
		status = "n/a"
	}
	return fmt.Sprintf("Tracking project %s (status: %s)", v.ProjectID, status)
}
