// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline holds the client-side model of ingestion jobs as reported by
// the backend, and the pure resolution of that model into the dashboard view.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Stage identifies one phase of backend processing.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageTranscribe Stage = "transcribe"
	StageChunk      Stage = "chunk"
	StageSummarise  Stage = "summarise"
	StageExport     Stage = "export"
)

var catalog = [...]Stage{StageIngest, StageTranscribe, StageChunk, StageSummarise, StageExport}

// Catalog returns the fixed stage catalog in canonical pipeline order.
func Catalog() []Stage {
	out := make([]Stage, len(catalog))
	copy(out, catalog[:])
	return out
}

// StageStatus is the observed state of a single stage.
type StageStatus string

const (
	StageQueued    StageStatus = "queued"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// Terminal reports whether the status is final for a stage within one job.
func (s StageStatus) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// JobStatus is the overall status of a job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Timestamp accepts both RFC 3339 and zone-less ISO 8601 values.
// The backend emits naive UTC timestamps ("2025-01-02T03:04:05.123456").
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// StageSnapshot is one stage's observed state.
type StageSnapshot struct {
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	Detail     string      `json:"detail,omitempty"`
	StartedAt  *Timestamp  `json:"started_at,omitempty"`
	FinishedAt *Timestamp  `json:"finished_at,omitempty"`
}

// JobRecord is one ingestion job as known to the backend.
type JobRecord struct {
	JobID     string          `json:"job_id"`
	ProjectID string          `json:"project_id"`
	CreatedAt Timestamp       `json:"created_at"`
	Status    JobStatus       `json:"status"`
	Metadata  map[string]any  `json:"metadata"`
	Stages    []StageSnapshot `json:"stages"`
	Errors    []string        `json:"errors"`
}

// Snapshot is the full job registry at one point in time.
// It is replaced wholesale on every successful poll and never merged.
type Snapshot struct {
	Jobs      []JobRecord `json:"jobs"`
	FetchedAt time.Time   `json:"-"`
}

// FindByProject returns the first job materialising projectID.
func (s *Snapshot) FindByProject(projectID string) (*JobRecord, bool) {
	if s == nil || projectID == "" {
		return nil, false
	}
	for i := range s.Jobs {
		if s.Jobs[i].ProjectID == projectID {
			return &s.Jobs[i], true
		}
	}
	return nil, false
}

// Len returns the number of jobs; a nil snapshot has none.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Jobs)
}
