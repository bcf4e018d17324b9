// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll outcomes.
const (
	PollResultSuccess = "success"
	PollResultError   = "error"
	PollResultStale   = "stale"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_polls_total",
		Help: "Job registry polls by scheduler and outcome",
	}, []string{"scheduler", "result"})

	pollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intake_poll_duration_seconds",
		Help:    "Latency of job registry polls",
		Buckets: prometheus.DefBuckets,
	}, []string{"scheduler"})

	pollDegraded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "intake_poll_degraded",
		Help: "1 when the last poll of a scheduler failed",
	}, []string{"scheduler"})

	pollRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "intake_poll_running",
		Help: "1 while a scheduler is started",
	}, []string{"scheduler"})

	registryJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "intake_registry_jobs",
		Help: "Jobs in the last snapshot fetched by a scheduler",
	}, []string{"scheduler"})

	stageRegressions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_stage_regressions_total",
		Help: "Stages observed moving from a terminal status back to a non-terminal one",
	}, []string{"stage"})
)

// RecordPoll counts a finished poll and, unless it was dropped, its latency.
func RecordPoll(scheduler, result string, d time.Duration) {
	pollsTotal.WithLabelValues(scheduler, result).Inc()
	if result == PollResultStale {
		return
	}
	pollDuration.WithLabelValues(scheduler).Observe(d.Seconds())
	degraded := 0.0
	if result == PollResultError {
		degraded = 1.0
	}
	pollDegraded.WithLabelValues(scheduler).Set(degraded)
}

// SetPollRunning flags whether a scheduler is active.
func SetPollRunning(scheduler string, running bool) {
	v := 0.0
	if running {
		v = 1.0
	}
	pollRunning.WithLabelValues(scheduler).Set(v)
}

// SetRegistryJobs publishes the number of jobs in the latest snapshot.
func SetRegistryJobs(scheduler string, n int) {
	registryJobs.WithLabelValues(scheduler).Set(float64(n))
}

// RecordStageRegression counts a stage status regression.
func RecordStageRegression(stage string) {
	stageRegressions.WithLabelValues(stage).Inc()
}
