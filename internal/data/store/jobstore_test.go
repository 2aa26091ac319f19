package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/data/redisStore"
	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBacking(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewTestStore(client)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr, internalStore := newRedisBacking(t)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		UserId:  "user-1",
		JobType: jobModel.JobTypeIndex,
		Status:  jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentId: "doc-9",
			ChunkCount: 4,
		},
	}

	t.Run("Save and Get", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload.DocumentId != "doc-9" || retrievedJob.UserId != "user-1" {
			t.Errorf("Data mismatch! Got %+v", retrievedJob)
		}
	})

	t.Run("Saved job carries a TTL", func(t *testing.T) {
		if ttl := mr.TTL("job:" + jobID); ttl <= 0 {
			t.Errorf("expected positive TTL, got %v", ttl)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists("job:" + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	_, internalStore := newRedisBacking(t)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("expected race-job to be stored")
	}
}

func TestInMemoryJobStore(t *testing.T) {
	ctx := context.Background()
	jobStore := store.InitInMemoryJobStore()

	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "a", Status: jobModel.JobStatusQueued})
	got, found := jobStore.GetJob(ctx, "a")
	if !found || got.Status != jobModel.JobStatusQueued {
		t.Fatalf("unexpected job %+v found=%v", got, found)
	}

	jobStore.DeleteJob(ctx, "a")
	if _, found := jobStore.GetJob(ctx, "a"); found {
		t.Error("job should be gone after delete")
	}
}

func TestInMemoryJobStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jobStore := store.NewInMemoryJobStore(time.Hour, func() time.Time { return clock })

	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "old"})
	clock = clock.Add(30 * time.Minute)
	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "new"})

	clock = clock.Add(45 * time.Minute)
	if _, found := jobStore.GetJob(ctx, "old"); found {
		t.Error("old job should have expired")
	}
	if _, found := jobStore.GetJob(ctx, "new"); !found {
		t.Error("new job should still be live")
	}
}
