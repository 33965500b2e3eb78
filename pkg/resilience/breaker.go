package resilience

import (
	"sync"
	"time"

	apperrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
)

// ErrCircuitOpen is returned without touching the upstream while a key's
// breaker is cooling down.
var ErrCircuitOpen = apperrors.New(apperrors.CodeCircuitOpen, "circuit open for upstream")

// Breaker opens per key after a run of consecutive failures and fails fast
// until the cooldown elapses. A single success closes it again.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu      sync.Mutex
	states  map[string]*breakerState
	nowFunc func() time.Time
}

type breakerState struct {
	failures int
	openedAt time.Time
	open     bool
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		states:    make(map[string]*breakerState),
		nowFunc:   time.Now,
	}
}

// Allow reports whether a call for the key may proceed.
func (b *Breaker) Allow(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[key]
	if !ok || !st.open {
		return nil
	}
	if b.nowFunc().Sub(st.openedAt) >= b.cooldown {
		// half-open: let one call through to test the upstream
		st.open = false
		return nil
	}
	return ErrCircuitOpen
}

// OnSuccess closes the breaker and clears the failure run.
func (b *Breaker) OnSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, key)
}

// OnFailure records a failure, opening the breaker at the threshold.
func (b *Breaker) OnFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[key]
	if !ok {
		st = &breakerState{}
		b.states[key] = st
	}
	st.failures++
	if st.failures >= b.threshold {
		st.open = true
		st.openedAt = b.nowFunc()
	}
}
