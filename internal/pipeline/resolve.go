// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import "slices"

// View is the stage and error data the dashboard renders for the active project.
type View struct {
	ProjectID string          `json:"project_id,omitempty"`
	JobID     string          `json:"job_id,omitempty"`
	JobStatus JobStatus       `json:"job_status,omitempty"`
	Stages    []StageSnapshot `json:"stages"`
	Errors    []string        `json:"errors"`
	// Default is set when no job backs the view yet.
	Default bool `json:"default"`
}

// DefaultStages returns the catalog with every stage queued.
func DefaultStages() []StageSnapshot {
	out := make([]StageSnapshot, 0, len(catalog))
	for _, st := range catalog {
		out = append(out, StageSnapshot{Stage: st, Status: StageQueued})
	}
	return out
}

// DefaultView is shown when nothing is tracked or the tracked job is not known yet.
func DefaultView(projectID string) View {
	return View{
		ProjectID: projectID,
		Stages:    DefaultStages(),
		Errors:    []string{},
		Default:   true,
	}
}

// Resolve derives the view for activeProjectID from snap.
//
// An unset project, a snapshot that has not loaded yet, and a project the
// snapshot does not contain all yield the default view; absence of a job is
// not an error. A matching job's stages and errors are returned as reported,
// without padding to the full catalog or reordering.
func Resolve(activeProjectID string, snap *Snapshot) View {
	if activeProjectID == "" || snap == nil {
		return DefaultView(activeProjectID)
	}
	job, ok := snap.FindByProject(activeProjectID)
	if !ok {
		return DefaultView(activeProjectID)
	}

	stages := slices.Clone(job.Stages)
	if stages == nil {
		stages = []StageSnapshot{}
	}
	errs := slices.Clone(job.Errors)
	if errs == nil {
		errs = []string{}
	}
	return View{
		ProjectID: activeProjectID,
		JobID:     job.JobID,
		JobStatus: job.Status,
		Stages:    stages,
		Errors:    errs,
	}
}
