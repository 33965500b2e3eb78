package resilience

import (
	"context"
	"sync"
	"time"
)

// SlidingWindowLimiter delays callers instead of rejecting them: each key
// gets at most maxPerWindow starts inside any rolling window.
type SlidingWindowLimiter struct {
	maxPerWindow int
	window       time.Duration

	mu      sync.Mutex
	byKey   map[string][]time.Time
	nowFunc func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSlidingWindowLimiter(maxPerWindow int, window time.Duration) *SlidingWindowLimiter {
	if maxPerWindow < 1 {
		maxPerWindow = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindowLimiter{
		maxPerWindow: maxPerWindow,
		window:       window,
		byKey:        make(map[string][]time.Time),
		nowFunc:      time.Now,
		sleep:        sleepCtx,
	}
}

// Wait blocks until the key is allowed to start another call.
func (l *SlidingWindowLimiter) Wait(ctx context.Context, key string) error {
	for {
		wait, ok := l.tryReserve(key)
		if ok {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *SlidingWindowLimiter) tryReserve(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	cutoff := now.Add(-l.window)

	stamps := l.byKey[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) < l.maxPerWindow {
		kept = append(kept, now)
		l.byKey[key] = kept
		return 0, true
	}

	l.byKey[key] = kept
	return kept[0].Add(l.window).Sub(now), false
}
