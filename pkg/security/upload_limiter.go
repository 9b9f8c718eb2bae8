package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopost-backend/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable is returned alongside an allow when Redis is down.
var ErrLimiterUnavailable = errors.New("upload limiter unavailable: redis not connected")

// UploadLimiter caps relay uploads with a Redis sliding window: a short
// per-IP window and a daily per-user window.
type UploadLimiter struct {
	maxPerMinute int
	maxPerDay    int
	client       func() *goredis.Client
}

// KEYS[1] = window key, ARGV = limit, window seconds, now (ms)
// Returns 1 when the upload fits in the window.
const uploadRateLimitScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2]) * 1000
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
redis.call('PEXPIRE', key, window)
return 1
`

const (
	minuteWindow = 60
	dayWindow    = 86400
)

// NewUploadLimiter defaults to 5 uploads/min per IP and 50/day per user.
func NewUploadLimiter(perMin, perDay int) *UploadLimiter {
	if perMin <= 0 {
		perMin = 5
	}
	if perDay <= 0 {
		perDay = 50
	}
	return &UploadLimiter{
		maxPerMinute: perMin,
		maxPerDay:    perDay,
		client:       redis.Client,
	}
}

// WithClient pins the limiter to a specific Redis client.
func (ul *UploadLimiter) WithClient(c *goredis.Client) *UploadLimiter {
	ul.client = func() *goredis.Client { return c }
	return ul
}

// AllowUpload reports (allowed, retryAfterSeconds, error). Without Redis it
// returns ErrLimiterUnavailable; callers choose whether to fail open.
func (ul *UploadLimiter) AllowUpload(ctx context.Context, ip, userID string) (bool, int, error) {
	client := ul.client()
	if client == nil {
		return true, 0, ErrLimiterUnavailable
	}

	now := time.Now().UnixMilli()

	allowed, err := ul.checkLimit(ctx, client, ipKey(ip), ul.maxPerMinute, minuteWindow, now)
	if err != nil {
		return false, minuteWindow, fmt.Errorf("upload rate limit check failed: %w", err)
	}
	if !allowed {
		return false, minuteWindow, nil
	}

	// anonymous relay callers share the zero user id; only real users get a daily cap
	if userID != "" {
		allowed, err = ul.checkLimit(ctx, client, userKey(userID), ul.maxPerDay, dayWindow, now)
		if err != nil {
			return false, 3600, fmt.Errorf("upload rate limit check failed: %w", err)
		}
		if !allowed {
			return false, 3600, nil
		}
	}

	return true, 0, nil
}

func (ul *UploadLimiter) checkLimit(ctx context.Context, client *goredis.Client, key string, limit, window int, now int64) (bool, error) {
	result, err := client.Eval(ctx, uploadRateLimitScript, []string{key}, limit, window, now).Result()
	if err != nil {
		return false, err
	}
	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}
	return allowed == 1, nil
}

// GetRemainingQuota returns (ipRemaining, userRemaining, error).
func (ul *UploadLimiter) GetRemainingQuota(ctx context.Context, ip, userID string) (int, int, error) {
	client := ul.client()
	if client == nil {
		return 0, 0, ErrLimiterUnavailable
	}

	now := time.Now().UnixMilli()

	ipCount, err := ul.getCount(ctx, client, ipKey(ip), minuteWindow, now)
	if err != nil {
		return 0, 0, err
	}
	ipRemaining := max(ul.maxPerMinute-ipCount, 0)

	userRemaining := ul.maxPerDay
	if userID != "" {
		userCount, err := ul.getCount(ctx, client, userKey(userID), dayWindow, now)
		if err != nil {
			return ipRemaining, 0, err
		}
		userRemaining = max(ul.maxPerDay-userCount, 0)
	}

	return ipRemaining, userRemaining, nil
}

func (ul *UploadLimiter) getCount(ctx context.Context, client *goredis.Client, key string, window int, now int64) (int, error) {
	client.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-int64(window)*1000))
	count, err := client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func ipKey(ip string) string       { return "autopost:upload:ip:" + ip }
func userKey(userID string) string { return "autopost:upload:user:" + userID }
