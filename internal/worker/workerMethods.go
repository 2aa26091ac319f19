package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	jobmodel "github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

const chatHistoryLimit = 20

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType), string(job.Status), time.Since(start))
	}()

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx = context.WithValue(ctx, config.USER_ID_KEY, job.UserId)
	timeout := config.JobTimeout
	if job.JobType == jobmodel.JobTypeResearch {
		timeout = config.ResearchJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := logger.Ctx(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJob(ctx, job, log)

	switch job.JobType {
	case jobmodel.JobTypeIndex:
		job = _ragService.IndexDocument(ctx, job)
	case jobmodel.JobTypeReembed:
		job = _ragService.ReembedDocument(ctx, job)
	case jobmodel.JobTypeResearch:
		job = _researchService.ProcessRequest(ctx, job, func(step jobmodel.Job) {
			saveJob(ctx, step, log)
		})
	default:
		job.CurrentStep = jobmodel.RedisCall
		job = processQuery(ctx, job, log)
	}

	job.EndTime = time.Now()
	if !job.Finished() {
		job.Status = jobmodel.JobStatusComplete
	}
	// the job deadline may have passed; the final record must still land
	saveJob(context.WithoutCancel(ctx), job, log)
	log.Info("Job finished", "status", job.Status, "step", job.CurrentStep)
}

// retired is called after the worker count was already decremented.
func retired(reason string) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	messageHistory, err := _jobService.MessageStore.GetMessageHistory(ctx, job.UserId, job.ChatId, chatHistoryLimit)
	if err != nil {
		log.Error("Failed to get message history", "error", err)
	}
	job = _ragService.ProcessRequest(ctx, job, messageHistory)
	if job.Status != jobmodel.JobStatusError {
		if err := _jobService.MessageStore.TrySaveChat(ctx, job.UserId, job.ChatId, job.JobPayload); err != nil {
			log.Error("Failed to save chat history", "error", err)
		}
	}
	return job
}

func saveJob(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job record", "error", err)
	}
}
