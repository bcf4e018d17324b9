// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	SubmitResultQueued   = "queued"
	SubmitResultEmpty    = "empty"
	SubmitResultInvalid  = "invalid"
	SubmitResultFailed   = "failed"
	SubmitResultInFlight = "in_flight"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_submissions_total",
		Help: "Submission attempts by outcome",
	}, []string{"result"})

	submissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_submission_duration_seconds",
		Help:    "Latency of ingest submissions sent to the backend",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	submissionBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_submission_bytes",
		Help:    "Total file bytes carried by a submission",
		Buckets: prometheus.ExponentialBuckets(1024, 8, 10),
	})

	draftFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intake_draft_files",
		Help: "Number of files currently held in the draft",
	})
)

// RecordSubmission counts a submission attempt by result.
func RecordSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

// ObserveSubmission records the latency and size of a submission that reached the backend.
func ObserveSubmission(d time.Duration, bytes int64) {
	submissionDuration.Observe(d.Seconds())
	submissionBytes.Observe(float64(bytes))
}

// SetDraftFiles publishes the current draft size.
func SetDraftFiles(n int) {
	draftFiles.Set(float64(n))
}
