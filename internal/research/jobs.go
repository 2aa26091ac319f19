package research

import (
	"context"
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/pkg/result"
)

func (s *service) ProcessRequest(ctx context.Context, job jobModel.Job, onStep func(jobModel.Job)) jobModel.Job {
	runCtx, cancel := context.WithTimeout(ctx, config.ResearchJobTimeout)
	defer cancel()

	job.CurrentStep = jobModel.ResearchStarted
	res := s.Run(runCtx, job.JobPayload.ResearchQuery, func(state researchModel.State) {
		job.CurrentStep = jobModel.InternalStatus(state)
		if onStep != nil {
			onStep(job)
		}
	})
	if !res.IsOk() {
		return s.jobError(job, res.Error())
	}

	out := res.Value()
	job.JobPayload.ResearchResult = &out
	job.JobPayload.Answer = out.Report
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) jobError(job jobModel.Job, err error) jobModel.Job {
	s.logger.Error("Research job failed", "jobId", job.Id, "error", err)

	code, message, retry := http.StatusInternalServerError, "RESEARCH_FAILURE", true
	switch result.KindOf(err) {
	case result.KindInvalidInput:
		code, message, retry = http.StatusBadRequest, "INVALID_RESEARCH_QUERY", false
	case result.KindParse:
		message = "OUTLINE_PARSE_FAILURE"
	case result.KindLLM:
		message = "LLM_GENERATION_FAILURE"
	case result.KindCanceled:
		code, message = http.StatusGatewayTimeout, "RESEARCH_TIMEOUT"
	}

	job.Error = jobModel.JobError{Code: code, Message: message, Retry: retry}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}
