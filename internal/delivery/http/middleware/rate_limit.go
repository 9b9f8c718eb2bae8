package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"autopost-backend/config"
	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/redis"
	"autopost-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "autopost:rl:"

// RateLimitPolicy is one fixed-window counter family. A non-positive Limit
// disables it.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
	// ByUser keys on the authenticated user, falling back to the client IP.
	ByUser bool
	// FailClosed answers 503 when the Redis counter errors instead of
	// counting in process.
	FailClosed bool
}

func (p RateLimitPolicy) key(c *gin.Context) string {
	subject := c.ClientIP()
	if p.ByUser {
		if userID := c.GetString(string(domain.KeyUserID)); userID != "" {
			subject = "user:" + userID
		}
	}
	return rateLimitKeyPrefix + p.Name + ":" + subject
}

// RateLimits holds the policies the router mounts: every /v1 call, the
// public signup forms, and credential submissions.
type RateLimits struct {
	Global      RateLimitPolicy
	Forms       RateLimitPolicy
	Credentials RateLimitPolicy

	audit  *security.SecurityLogger
	client func() *goredis.Client
	local  *windowCounter
}

func NewRateLimits(cfg *config.Config, audit *security.SecurityLogger) *RateLimits {
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimits{
		Global: RateLimitPolicy{Name: "ip", Limit: cfg.RateLimitGlobalThreshold, Window: window},
		Forms:  RateLimitPolicy{Name: "form", Limit: cfg.RateLimitFormThreshold, Window: window},
		Credentials: RateLimitPolicy{
			Name:       "cred",
			Limit:      cfg.RateLimitCredentialThreshold,
			Window:     window,
			ByUser:     true,
			FailClosed: true,
		},
		audit:  audit,
		client: redis.Client,
		local:  newWindowCounter(),
	}
}

// Middleware enforces p. Redis is shared across instances; without it the
// count is kept per process.
func (rl *RateLimits) Middleware(p RateLimitPolicy) gin.HandlerFunc {
	if p.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := p.key(c)
		now := time.Now()

		count, resetAt, err := rl.count(c.Request.Context(), key, p.Window, now)
		if err != nil {
			logger.Log.Warn("Rate limit counter unavailable", "policy", p.Name, "error", err)
			if p.FailClosed {
				rl.logCounterError(c, p, err)
				response.Abort(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.")
				return
			}
			count, resetAt = rl.local.incr(key, p.Window, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(p.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(p.Limit-count, 0)))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count > p.Limit {
			c.Header("Retry-After", strconv.Itoa(max(int(time.Until(resetAt).Seconds()), 1)))
			if rl.audit != nil {
				rl.audit.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"),
					c.GetString(string(domain.KeyRequestID)), c.FullPath())
			}
			response.Abort(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		c.Next()
	}
}

// KEYS[1] = counter; ARGV[1] = window (ms). Returns {count, pttl}.
var fixedWindowScript = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

func (rl *RateLimits) count(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	client := rl.client()
	if client == nil {
		n, resetAt := rl.local.incr(key, window, now)
		return n, resetAt, nil
	}
	vals, err := fixedWindowScript.Run(ctx, client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}
	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return int(vals[0]), now.Add(ttl), nil
}

func (rl *RateLimits) logCounterError(c *gin.Context, p RateLimitPolicy, err error) {
	if rl.audit == nil {
		return
	}
	rl.audit.Log(c.Request.Context(), security.SecurityEvent{
		Event:       security.EventRateLimitTriggered,
		SubjectType: "system",
		IP:          c.ClientIP(),
		RequestID:   c.GetString(string(domain.KeyRequestID)),
		Details:     map[string]interface{}{"policy": p.Name, "error": err.Error()},
	})
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// windowCounter is the in-process fallback. Expired entries are swept on
// access at most once a minute.
type windowCounter struct {
	mu        sync.Mutex
	entries   map[string]windowEntry
	lastSweep time.Time
}

func newWindowCounter() *windowCounter {
	return &windowCounter{entries: make(map[string]windowEntry)}
}

func (w *windowCounter) incr(key string, window time.Duration, now time.Time) (int, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastSweep) > time.Minute {
		for k, e := range w.entries {
			if now.After(e.resetAt) {
				delete(w.entries, k)
			}
		}
		w.lastSweep = now
	}

	e, ok := w.entries[key]
	if !ok || now.After(e.resetAt) {
		e = windowEntry{resetAt: now.Add(window)}
	}
	e.count++
	w.entries[key] = e
	return e.count, e.resetAt
}
