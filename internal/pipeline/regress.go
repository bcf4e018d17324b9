// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

// Regression records a stage that left a terminal status between two
// observations of the same job.
type Regression struct {
	Stage Stage
	From  StageStatus
	To    StageStatus
}

// Regressions lists stages of next that moved from succeeded/failed back to
// queued/running relative to prev. The backend is the source of truth, so
// callers report these and never rewrite the data.
func Regressions(prev, next *JobRecord) []Regression {
	if prev == nil || next == nil || prev.JobID != next.JobID {
		return nil
	}
	before := make(map[Stage]StageStatus, len(prev.Stages))
	for _, st := range prev.Stages {
		before[st.Stage] = st.Status
	}
	var out []Regression
	for _, st := range next.Stages {
		was, ok := before[st.Stage]
		if !ok || !was.Terminal() || st.Status.Terminal() {
			continue
		}
		out = append(out, Regression{Stage: st.Stage, From: was, To: st.Status})
	}
	return out
}
