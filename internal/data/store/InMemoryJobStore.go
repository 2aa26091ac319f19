package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMemStore")

type expiringJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore is the fallback used when redis is offline. Records expire after
// the same TTL the redis store uses; expired entries are dropped lazily.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]expiringJob
	ttl  time.Duration
	now  func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]expiringJob),
		ttl:  ttl,
		now:  now,
	}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.jobs {
		if now.After(entry.expiresAt) {
			delete(s.jobs, id)
		}
	}
	s.jobs[job.Id] = expiringJob{job: job, expiresAt: now.Add(s.ttl)}
	inMemLogger.Ctx(ctx).Debug("Saved job to store", "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	s.mu.RLock()
	entry, found := s.jobs[jobId]
	s.mu.RUnlock()
	if !found || s.now().After(entry.expiresAt) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}
