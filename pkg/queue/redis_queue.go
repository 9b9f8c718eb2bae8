package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"autopost-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
)

type RedisJobQueue struct {
	client       *redis.Client
	stream       string
	group        string
	delayedKey   string
	consumerBase string
	jobTTL       time.Duration
	maxAttempts  int
	backoff      Backoff
	block        time.Duration
	claimIdle    time.Duration
	pollInterval time.Duration
	maxLen       int64
	readCount    int64
	claimCount   int64
	once         sync.Once
	wg           conc.WaitGroup
}

type RedisQueueConfig struct {
	Stream       string
	Group        string
	Consumer     string
	JobTTL       time.Duration
	MaxAttempts  int
	Backoff      Backoff
	Block        time.Duration
	ClaimIdle    time.Duration
	PollInterval time.Duration
	MaxLen       int64
	ReadCount    int64
	ClaimCount   int64
}

var _ Queue = (*RedisJobQueue)(nil)

func NewRedisJobQueue(client *redis.Client, cfg RedisQueueConfig) (*RedisJobQueue, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "default"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = uuid.NewString()
	}
	jobTTL := cfg.JobTTL
	if jobTTL <= 0 {
		jobTTL = 7 * 24 * time.Hour
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = time.Minute
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 10
	}
	claimCount := cfg.ClaimCount
	if claimCount <= 0 {
		claimCount = 10
	}

	return &RedisJobQueue{
		client:       client,
		stream:       stream,
		group:        group,
		delayedKey:   stream + ":delayed",
		consumerBase: consumer,
		jobTTL:       jobTTL,
		maxAttempts:  maxAttempts,
		backoff:      cfg.Backoff,
		block:        block,
		claimIdle:    claimIdle,
		pollInterval: pollInterval,
		maxLen:       maxLen,
		readCount:    readCount,
		claimCount:   claimCount,
	}, nil
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, payload []byte) (Job, error) {
	if len(payload) == 0 {
		return Job{}, errors.New("job payload required")
	}
	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Payload:   payload,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.writeStatus(ctx, job); err != nil {
		return Job{}, fmt.Errorf("write job status: %w", err)
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{"job_id": job.ID},
	}).Err(); err != nil {
		return Job{}, fmt.Errorf("add job to stream: %w", err)
	}
	return job, nil
}

func (q *RedisJobQueue) GetJob(ctx context.Context, jobID string) (Job, bool, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Job{}, false, nil
	}
	data, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return Job{}, false, err
	}
	if len(data) == 0 {
		return Job{}, false, nil
	}
	return decodeJob(jobID, data), true, nil
}

func (q *RedisJobQueue) Start(ctx context.Context, concurrency int, handler Handler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		q.wg.Go(func() { q.consumeLoop(ctx, consumer, handler) })
	}
	q.wg.Go(func() { q.promoteLoop(ctx) })
}

func (q *RedisJobQueue) Wait() {
	q.wg.Wait()
}

// ensureGroup creates the consumer group at the start of the stream so jobs
// enqueued before the first consumer ran are still delivered. Handled
// entries are deleted, so "0" never replays finished work.
func (q *RedisJobQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			logger.Log.Warn("failed to create consumer group", "stream", q.stream, "group", q.group, "error", err)
		}
	})
}

func (q *RedisJobQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				logger.Log.Warn("queue read failed", "stream", q.stream, "consumer", consumer, "error", err)
				sleepCtx(ctx, q.pollInterval)
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

// claimPending takes over messages another consumer read but never acked.
func (q *RedisJobQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.claimCount,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *RedisJobQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler Handler) {
	jobID, _ := msg.Values["job_id"].(string)
	if jobID == "" {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	job, ok, err := q.markProcessing(ctx, jobID)
	if err != nil {
		// left pending; XAUTOCLAIM retries it
		logger.Log.Warn("failed to mark job processing", "job_id", jobID, "error", err)
		return
	}
	if !ok {
		logger.Log.Warn("dropping job without status record", "job_id", jobID)
		q.ackAndDel(ctx, msg.ID)
		return
	}

	herr := invoke(ctx, handler, job)
	if herr == nil {
		_ = q.markDone(ctx, job)
		q.ackAndDel(ctx, msg.ID)
		return
	}

	if job.Attempts >= q.maxAttempts {
		logger.Log.Error("job failed permanently", "job_id", jobID, "attempts", job.Attempts, "error", herr)
		_ = q.markFailed(ctx, job, herr.Error())
		q.ackAndDel(ctx, msg.ID)
		return
	}

	delay := q.backoff.Delay(job.Attempts)
	logger.Log.Warn("job failed, retrying", "job_id", jobID, "attempts", job.Attempts, "retry_in", delay.String(), "error", herr)
	if err := q.scheduleRetry(ctx, msg.ID, job, herr.Error(), delay); err != nil {
		logger.Log.Warn("failed to schedule retry", "job_id", jobID, "error", err)
	}
}

func (q *RedisJobQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

// scheduleRetry parks the job in the delayed set and acks the stream entry
// atomically. If it fails the entry stays pending for XAUTOCLAIM.
func (q *RedisJobQueue) scheduleRetry(ctx context.Context, msgID string, job Job, errMsg string, delay time.Duration) error {
	now := time.Now().UTC()
	job.Status = StatusQueued
	job.ErrorMessage = errMsg
	job.NextAttemptAt = now.Add(delay)
	job.UpdatedAt = now

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), statusFields(job))
	pipe.ZAdd(ctx, q.delayedKey, redis.Z{Score: float64(job.NextAttemptAt.UnixMilli()), Member: job.ID})
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

// KEYS[1] = delayed zset, KEYS[2] = stream; ARGV = now (ms), batch, maxlen
const promoteScript = `
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(due) do
    redis.call('XADD', KEYS[2], 'MAXLEN', '~', ARGV[3], '*', 'job_id', id)
    redis.call('ZREM', KEYS[1], id)
end
return #due
`

func (q *RedisJobQueue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.promoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
				logger.Log.Warn("failed to promote delayed jobs", "stream", q.stream, "error", err)
			}
		}
	}
}

// promoteDue moves retries whose backoff has elapsed back onto the stream.
func (q *RedisJobQueue) promoteDue(ctx context.Context, now time.Time) (int64, error) {
	return q.client.Eval(ctx, promoteScript, []string{q.delayedKey, q.stream},
		now.UnixMilli(), q.claimCount, q.maxLen).Int64()
}

func (q *RedisJobQueue) markProcessing(ctx context.Context, jobID string) (Job, bool, error) {
	job, ok, err := q.GetJob(ctx, jobID)
	if err != nil || !ok {
		return Job{}, ok, err
	}
	job.Attempts++
	job.Status = StatusProcessing
	job.NextAttemptAt = time.Time{}
	job.UpdatedAt = time.Now().UTC()
	if err := q.writeStatus(ctx, job); err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

func (q *RedisJobQueue) markDone(ctx context.Context, job Job) error {
	job.Status = StatusDone
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	return q.writeStatus(ctx, job)
}

func (q *RedisJobQueue) markFailed(ctx context.Context, job Job, errMsg string) error {
	job.Status = StatusFailed
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC()
	return q.writeStatus(ctx, job)
}

func (q *RedisJobQueue) writeStatus(ctx context.Context, job Job) error {
	key := q.jobKey(job.ID)
	if err := q.client.HSet(ctx, key, statusFields(job)).Err(); err != nil {
		return err
	}
	_ = q.client.Expire(ctx, key, q.jobTTL).Err()
	return nil
}

func (q *RedisJobQueue) jobKey(jobID string) string {
	return fmt.Sprintf("job:%s:%s", q.stream, jobID)
}

func statusFields(job Job) map[string]any {
	next := ""
	if !job.NextAttemptAt.IsZero() {
		next = job.NextAttemptAt.Format(time.RFC3339Nano)
	}
	return map[string]any{
		"id":            job.ID,
		"payload":       string(job.Payload),
		"status":        job.Status,
		"error":         job.ErrorMessage,
		"attempts":      strconv.Itoa(job.Attempts),
		"nextAttemptAt": next,
		"createdAt":     job.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":     job.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeJob(jobID string, data map[string]string) Job {
	job := Job{ID: jobID, Payload: []byte(data["payload"]), Status: data["status"], ErrorMessage: data["error"]}
	if n, err := strconv.Atoi(data["attempts"]); err == nil {
		job.Attempts = n
	}
	if t, err := time.Parse(time.RFC3339Nano, data["nextAttemptAt"]); err == nil {
		job.NextAttemptAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["createdAt"]); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["updatedAt"]); err == nil {
		job.UpdatedAt = t
	}
	return job
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
