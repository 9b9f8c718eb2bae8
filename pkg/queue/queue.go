// Package queue delivers jobs at least once. RedisJobQueue persists jobs in a
// Redis Streams consumer group; MemoryQueue is the single-process fallback.
// Both retry failed jobs with exponential backoff up to a maximum number of
// attempts.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

var ErrQueueFull = errors.New("queue is full")

type Job struct {
	ID            string    `json:"id"`
	Payload       []byte    `json:"payload"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"nextAttemptAt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, payload []byte) (Job, error)
	GetJob(ctx context.Context, id string) (Job, bool, error)
	// Start launches the consumers; they stop when ctx is cancelled.
	Start(ctx context.Context, concurrency int, handler Handler)
	// Wait blocks until every consumer started by Start has returned.
	Wait()
}

// Backoff doubles the delay after every failed attempt, from Base up to Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	base, limit := b.Base, b.Max
	if base <= 0 {
		base = 2 * time.Second
	}
	if limit <= 0 {
		limit = 5 * time.Minute
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// invoke runs handler and turns a panic into an error so one bad job can
// not take a consumer down.
func invoke(ctx context.Context, handler Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}
