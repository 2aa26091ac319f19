package jobModel

import (
	"testing"

	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/stretchr/testify/assert"
)

func TestJob_States(t *testing.T) {
	tests := []struct {
		name     string
		job      Job
		finished bool
		ready    bool
	}{
		{name: "Queued", job: Job{JobType: JobTypeResearch, Status: JobStatusQueued}},
		{name: "Failed", job: Job{JobType: JobTypeResearch, Status: JobStatusError}, finished: true},
		{name: "Complete_No_Report", job: Job{JobType: JobTypeResearch, Status: JobStatusComplete}, finished: true},
		{
			name:     "Complete_Research",
			job:      Job{JobType: JobTypeResearch, Status: JobStatusComplete, JobPayload: JobPayload{ResearchResult: &researchModel.DeepResearchResult{}}},
			finished: true,
			ready:    true,
		},
		{
			name:     "Complete_Chat",
			job:      Job{JobType: JobTypeQuery, Status: JobStatusComplete, JobPayload: JobPayload{ResearchResult: &researchModel.DeepResearchResult{}}},
			finished: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.finished, tt.job.Finished())
			assert.Equal(t, tt.ready, tt.job.ResearchReady())
		})
	}
}

func TestJob_OwnedBy(t *testing.T) {
	assert.True(t, Job{UserId: "u1"}.OwnedBy("u1"))
	assert.False(t, Job{UserId: "u1"}.OwnedBy("u2"))
	assert.False(t, Job{}.OwnedBy(""), "jobs without an owner are never visible")
}
