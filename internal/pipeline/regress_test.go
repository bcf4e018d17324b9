package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegressions(t *testing.T) {
	prev := &JobRecord{JobID: "j1", Stages: []StageSnapshot{
		{Stage: StageIngest, Status: StageSucceeded},
		{Stage: StageTranscribe, Status: StageFailed},
		{Stage: StageChunk, Status: StageRunning},
	}}

	tests := []struct {
		name string
		next *JobRecord
		want []Regression
	}{
		{
			name: "progress only",
			next: &JobRecord{JobID: "j1", Stages: []StageSnapshot{
				{Stage: StageIngest, Status: StageSucceeded},
				{Stage: StageTranscribe, Status: StageFailed},
				{Stage: StageChunk, Status: StageSucceeded},
			}},
		},
		{
			name: "succeeded back to running",
			next: &JobRecord{JobID: "j1", Stages: []StageSnapshot{
				{Stage: StageIngest, Status: StageRunning},
				{Stage: StageTranscribe, Status: StageQueued},
			}},
			want: []Regression{
				{Stage: StageIngest, From: StageSucceeded, To: StageRunning},
				{Stage: StageTranscribe, From: StageFailed, To: StageQueued},
			},
		},
		{
			name: "different job is not compared",
			next: &JobRecord{JobID: "j2", Stages: []StageSnapshot{
				{Stage: StageIngest, Status: StageQueued},
			}},
		},
		{
			name: "missing next",
			next: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Regressions(prev, tt.next))
		})
	}
}
