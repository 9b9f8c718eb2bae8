package usecase

import (
	"context"
	"time"
)

// Pinger is anything whose liveness can be probed, such as the database
// pool or the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks map[string]Pinger
}

// NewHealthUsecase probes each named dependency. A nil Pinger reports
// "disabled" and does not make the service unhealthy.
func NewHealthUsecase(checks map[string]Pinger) HealthUsecase {
	return &healthUsecase{checks: checks}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result := map[string]string{"status": "ok"}
	healthy := true
	for name, p := range u.checks {
		if p == nil {
			result[name] = "disabled"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			result[name] = "down"
			healthy = false
			continue
		}
		result[name] = "up"
	}
	if !healthy {
		result["status"] = "degraded"
	}
	return result, healthy
}
