package resilience

import (
	"context"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
)

// Executor is the call-shaping surface the HTTP clients depend on.
type Executor interface {
	Execute(ctx context.Context, key string, op func(ctx context.Context) error) error
}

// Registry composes the limiter, breaker and retry policy around outbound
// calls. Keys partition state, so one merchant's trouble does not throttle
// another.
type Registry struct {
	limiter *SlidingWindowLimiter
	breaker *Breaker
	retry   *RetryPolicy
}

func NewRegistry(cfg config.ResilienceConfig) *Registry {
	return &Registry{
		limiter: NewSlidingWindowLimiter(cfg.RateMaxPerWindow, cfg.RateWindow),
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		retry:   NewRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffCap),
	}
}

// Execute shapes one upstream call: the limiter gates entry, the breaker
// fails fast, then the retry loop drives the attempts. A breaker that trips
// mid-run never shortens the current attempt budget; it blocks the next call.
func (r *Registry) Execute(ctx context.Context, key string, op func(ctx context.Context) error) error {
	if err := r.limiter.Wait(ctx, key); err != nil {
		return err
	}
	if err := r.breaker.Allow(key); err != nil {
		return err
	}
	return r.retry.Do(ctx, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			// 4xx answers are the upstream working as intended, only
			// transient failures count toward opening the breaker
			if IsRetryable(err) {
				r.breaker.OnFailure(key)
			}
			return err
		}
		r.breaker.OnSuccess(key)
		return nil
	})
}
