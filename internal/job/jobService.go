package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// NewJob builds a queued job owned by the user and trace carried by ctx.
func NewJob(ctx context.Context, jobType jobModel.JobType, payload jobModel.JobPayload) jobModel.Job {
	j := jobModel.Job{
		Id:          uuid.NewString(),
		JobType:     jobType,
		JobPayload:  payload,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.UserQueryInit,
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		j.TraceId = trace
	}
	if user, ok := ctx.Value(config.USER_ID_KEY).(string); ok {
		j.UserId = user
	}
	if jobType != jobModel.JobTypeQuery {
		j.CurrentStep = jobModel.IndexInit
	}
	if jobType == jobModel.JobTypeResearch {
		j.CurrentStep = jobModel.ResearchStarted
	}
	return j
}

// Enqueue records the job as queued and hands it to the worker pool. The send blocks
// while the buffer is full so the API slows down instead of dropping work.
func (s *Service) Enqueue(ctx context.Context, j jobModel.Job) error {
	log := s.log().Ctx(ctx).With("jobId", j.Id, "jobType", j.JobType)

	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		log.Error("Could not record queued job", "error", err)
		return err
	}

	select {
	case s.JobChannel <- j:
	case <-ctx.Done():
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), j.Id)
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()
	log.Info("Created new job")

	// a new worker every RequestsPerNewWorkerCount requests, or for any job that
	// spends most of its time waiting on external batch calls. Idle workers retire.
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType != jobModel.JobTypeQuery {
		metrics.StartDispatcherSignalCount()
		select {
		case s.DispatcherChannel <- true:
		default:
			log.Debug("Dispatcher already signalled", "requestCount", count)
		}
	}
	return nil
}

// GetJob returns the job only when it belongs to userId.
func (s *Service) GetJob(ctx context.Context, userId string, id string) (jobModel.Job, error) {
	if id == "" {
		return jobModel.Job{}, ErrJobNotFound
	}
	j, found := s.JobStore.GetJob(ctx, id)
	if !found || !j.OwnedBy(userId) {
		return jobModel.Job{}, ErrJobNotFound
	}
	return j, nil
}

func (s *Service) log() *logger_i.Logger {
	if s.logger == nil {
		s.logger = logger_i.NewLogger("JobService")
	}
	return s.logger
}
