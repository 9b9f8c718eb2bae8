package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: 2 * time.Second, Max: 5 * time.Minute}

	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 8*time.Second, b.Delay(3))
	assert.Equal(t, 5*time.Minute, b.Delay(10))
	assert.Equal(t, 2*time.Second, Backoff{}.Delay(0), "zero value uses the defaults")
}

func newTestRedisQueue(t *testing.T, maxAttempts int) (*RedisJobQueue, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, err := NewRedisJobQueue(client, RedisQueueConfig{
		Stream:       "test:notifications",
		Group:        "test-mailers",
		Consumer:     "consumer",
		MaxAttempts:  maxAttempts,
		Backoff:      Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
		Block:        20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return q, client
}

func runQueue(t *testing.T, q Queue, handler Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 2, handler)
	t.Cleanup(func() {
		cancel()
		q.Wait()
	})
}

func TestRedisJobQueue(t *testing.T) {
	t.Run("Should retry a failed job and finish it", func(t *testing.T) {
		q, _ := newTestRedisQueue(t, 5)
		var calls atomic.Int32

		runQueue(t, q, func(_ context.Context, job Job) error {
			assert.Equal(t, `{"kind":"denial"}`, string(job.Payload))
			if calls.Add(1) == 1 {
				return errors.New("smtp timeout")
			}
			return nil
		})

		job, err := q.Enqueue(context.Background(), []byte(`{"kind":"denial"}`))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			got, ok, _ := q.GetJob(context.Background(), job.ID)
			return ok && got.Status == StatusDone
		}, 3*time.Second, 10*time.Millisecond)

		got, _, _ := q.GetJob(context.Background(), job.ID)
		assert.Equal(t, 2, got.Attempts)
		assert.Empty(t, got.ErrorMessage)
	})

	t.Run("Should deliver jobs enqueued before the consumers started", func(t *testing.T) {
		q, _ := newTestRedisQueue(t, 5)
		var calls atomic.Int32

		job, err := q.Enqueue(context.Background(), []byte(`{"kind":"beta_signup"}`))
		require.NoError(t, err)

		runQueue(t, q, func(_ context.Context, job Job) error {
			assert.Equal(t, `{"kind":"beta_signup"}`, string(job.Payload))
			calls.Add(1)
			return nil
		})

		require.Eventually(t, func() bool {
			got, ok, _ := q.GetJob(context.Background(), job.ID)
			return ok && got.Status == StatusDone
		}, 3*time.Second, 10*time.Millisecond)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should mark a job failed after the last attempt", func(t *testing.T) {
		q, client := newTestRedisQueue(t, 3)
		var calls atomic.Int32

		runQueue(t, q, func(context.Context, Job) error {
			calls.Add(1)
			return errors.New("mailbox unavailable")
		})

		job, err := q.Enqueue(context.Background(), []byte(`{}`))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			got, ok, _ := q.GetJob(context.Background(), job.ID)
			return ok && got.Status == StatusFailed
		}, 3*time.Second, 10*time.Millisecond)

		got, _, _ := q.GetJob(context.Background(), job.ID)
		assert.Equal(t, 3, got.Attempts)
		assert.Equal(t, "mailbox unavailable", got.ErrorMessage)
		assert.EqualValues(t, 3, calls.Load())

		delayed, err := client.ZCard(context.Background(), q.delayedKey).Result()
		require.NoError(t, err)
		assert.Zero(t, delayed)
	})

	t.Run("Should keep the message pending when the retry cannot be scheduled", func(t *testing.T) {
		q, client := newTestRedisQueue(t, 5)
		ctx := context.Background()
		q.ensureGroup(ctx)

		job, err := q.Enqueue(ctx, []byte(`{}`))
		require.NoError(t, err)
		streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: "consumer-1",
			Streams:  []string{q.stream, ">"},
			Count:    1,
		}).Result()
		require.NoError(t, err)
		msgID := streams[0].Messages[0].ID

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, q.scheduleRetry(canceled, msgID, job, "boom", time.Second))

		pending, err := client.XPending(ctx, q.stream, q.group).Result()
		require.NoError(t, err)
		assert.EqualValues(t, 1, pending.Count)
	})

	t.Run("Should only promote retries whose delay has elapsed", func(t *testing.T) {
		q, client := newTestRedisQueue(t, 5)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, client.ZAdd(ctx, q.delayedKey,
			redis.Z{Score: float64(now.Add(-time.Second).UnixMilli()), Member: "due"},
			redis.Z{Score: float64(now.Add(time.Hour).UnixMilli()), Member: "later"},
		).Err())

		moved, err := q.promoteDue(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, moved)

		msgs, err := client.XRange(ctx, q.stream, "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "due", msgs[0].Values["job_id"])

		left, err := client.ZRange(ctx, q.delayedKey, 0, -1).Result()
		require.NoError(t, err)
		assert.Equal(t, []string{"later"}, left)
	})

	t.Run("Should require a client and a stream", func(t *testing.T) {
		_, err := NewRedisJobQueue(nil, RedisQueueConfig{Stream: "s"})
		assert.Error(t, err)

		_, client := newTestRedisQueue(t, 1)
		_, err = NewRedisJobQueue(client, RedisQueueConfig{})
		assert.Error(t, err)
	})
}

func TestMemoryQueue(t *testing.T) {
	backoff := Backoff{Base: 5 * time.Millisecond, Max: 20 * time.Millisecond}

	t.Run("Should retry until the handler succeeds", func(t *testing.T) {
		q := NewMemoryQueue(8, 5, backoff)
		var calls atomic.Int32
		runQueue(t, q, func(context.Context, Job) error {
			if calls.Add(1) < 3 {
				return errors.New("temporary")
			}
			return nil
		})

		job, err := q.Enqueue(context.Background(), []byte(`{}`))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			got, _, _ := q.GetJob(context.Background(), job.ID)
			return got.Status == StatusDone
		}, 2*time.Second, 5*time.Millisecond)

		got, _, _ := q.GetJob(context.Background(), job.ID)
		assert.Equal(t, 3, got.Attempts)
	})

	t.Run("Should treat a handler panic as a failed attempt", func(t *testing.T) {
		q := NewMemoryQueue(8, 1, backoff)
		runQueue(t, q, func(context.Context, Job) error {
			panic("template missing")
		})

		job, err := q.Enqueue(context.Background(), []byte(`{}`))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			got, _, _ := q.GetJob(context.Background(), job.ID)
			return got.Status == StatusFailed
		}, 2*time.Second, 5*time.Millisecond)

		got, _, _ := q.GetJob(context.Background(), job.ID)
		assert.Contains(t, got.ErrorMessage, "template missing")
	})

	t.Run("Should evict finished jobs after the retention period", func(t *testing.T) {
		q := NewMemoryQueue(8, 1, backoff)
		q.retention = 20 * time.Millisecond
		runQueue(t, q, func(context.Context, Job) error { return nil })

		job, err := q.Enqueue(context.Background(), []byte(`{"email":"coach@example.com"}`))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, ok, _ := q.GetJob(context.Background(), job.ID)
			return !ok
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("Should refuse jobs when full", func(t *testing.T) {
		q := NewMemoryQueue(1, 1, backoff)
		_, err := q.Enqueue(context.Background(), []byte(`{}`))
		require.NoError(t, err)

		_, err = q.Enqueue(context.Background(), []byte(`{}`))
		assert.ErrorIs(t, err, ErrQueueFull)
	})
}
