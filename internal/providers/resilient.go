package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vibe/internal/modules/executor"
	"vibe/internal/modules/planner"
	"vibe/internal/modules/venue"
)

// ResilienceConfig tunes the limiter and breaker in front of one provider.
type ResilienceConfig struct {
	RatePerSecond    float64       `koanf:"rate_per_second"`
	Burst            int           `koanf:"burst"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

func DefaultResilience() ResilienceConfig {
	return ResilienceConfig{RatePerSecond: 5, Burst: 5, FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// Resilient wraps an adapter with a token-bucket limiter and a circuit breaker.
// A caller cancelling its own context does not count against the breaker.
type Resilient struct {
	next    executor.Adapter
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]venue.Candidate]
}

func NewResilient(name string, next executor.Adapter, cfg ResilienceConfig, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]venue.Candidate](settings),
	}
}

func (r *Resilient) Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.breaker.Execute(func() ([]venue.Candidate, error) {
		return r.next.Search(ctx, q)
	})
}

// State exposes the breaker state for health reporting.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}
