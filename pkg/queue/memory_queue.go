package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"autopost-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// MemoryQueue keeps jobs in process. Jobs still queued or waiting for a
// retry are lost on restart. Finished jobs are evicted after retention.
type MemoryQueue struct {
	jobs        chan string
	maxAttempts int
	backoff     Backoff
	retention   time.Duration

	mu     sync.Mutex
	status map[string]Job

	wg conc.WaitGroup
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue(capacity, maxAttempts int, backoff Backoff) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &MemoryQueue{
		jobs:        make(chan string, capacity),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		retention:   time.Hour,
		status:      make(map[string]Job),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, payload []byte) (Job, error) {
	if len(payload) == 0 {
		return Job{}, errors.New("job payload required")
	}
	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Payload:   append([]byte(nil), payload...),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.put(job)
	select {
	case q.jobs <- job.ID:
		return job, nil
	default:
		q.mu.Lock()
		delete(q.status, job.ID)
		q.mu.Unlock()
		return Job{}, ErrQueueFull
	}
}

func (q *MemoryQueue) GetJob(_ context.Context, id string) (Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.status[id]
	return job, ok, nil
}

func (q *MemoryQueue) Start(ctx context.Context, concurrency int, handler Handler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		q.wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-q.jobs:
					q.handle(ctx, id, handler)
				}
			}
		})
	}
}

func (q *MemoryQueue) Wait() {
	q.wg.Wait()
}

func (q *MemoryQueue) handle(ctx context.Context, id string, handler Handler) {
	job, ok := q.update(id, func(j *Job) {
		j.Attempts++
		j.Status = StatusProcessing
		j.NextAttemptAt = time.Time{}
	})
	if !ok {
		return
	}

	err := invoke(ctx, handler, job)
	if err == nil {
		q.update(id, func(j *Job) {
			j.Status = StatusDone
			j.ErrorMessage = ""
		})
		q.evictLater(id)
		return
	}

	if job.Attempts >= q.maxAttempts {
		logger.Log.Error("job failed permanently", "job_id", id, "attempts", job.Attempts, "error", err)
		q.update(id, func(j *Job) {
			j.Status = StatusFailed
			j.ErrorMessage = err.Error()
		})
		q.evictLater(id)
		return
	}

	delay := q.backoff.Delay(job.Attempts)
	logger.Log.Warn("job failed, retrying", "job_id", id, "attempts", job.Attempts, "retry_in", delay.String(), "error", err)
	q.update(id, func(j *Job) {
		j.Status = StatusQueued
		j.ErrorMessage = err.Error()
		j.NextAttemptAt = time.Now().UTC().Add(delay)
	})
	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- id:
		default:
			q.update(id, func(j *Job) {
				j.Status = StatusFailed
				j.ErrorMessage = ErrQueueFull.Error()
			})
			q.evictLater(id)
		}
	})
}

// evictLater drops a finished job, payload included, once retention elapses.
func (q *MemoryQueue) evictLater(id string) {
	time.AfterFunc(q.retention, func() {
		q.mu.Lock()
		delete(q.status, id)
		q.mu.Unlock()
	})
}

func (q *MemoryQueue) put(job Job) {
	q.mu.Lock()
	q.status[job.ID] = job
	q.mu.Unlock()
}

func (q *MemoryQueue) update(id string, fn func(*Job)) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.status[id]
	if !ok {
		return Job{}, false
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	q.status[id] = job
	return job, true
}
