package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
)

// quotaKey identifies one phase's quota within one account run.
type quotaKey struct {
	accountID string
	kind      phase.Kind
}

// RateLimiter owns inter-action delays and per-phase run quotas.
//
// Quotas are keyed by (account, phase) and reset at the start of each
// account run. Quota exhaustion is the normal phase-termination condition,
// not an error.
type RateLimiter struct {
	mu        sync.Mutex
	remaining map[quotaKey]int

	// draw picks a delay from [min, max] inclusive. Injectable for tests.
	draw func(min, max time.Duration) time.Duration
}

// NewRateLimiter creates a RateLimiter with a uniform random delay draw.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		remaining: make(map[quotaKey]int),
		draw:      uniformDelay,
	}
}

// uniformDelay draws uniformly from [min, max], inclusive on both ends.
func uniformDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

// NextDelay returns the suspension before the next action in a phase.
func (l *RateLimiter) NextDelay(cfg phase.Config) time.Duration {
	return l.draw(cfg.MinDelay, cfg.MaxDelay)
}

// ResetQuota sets the remaining quota for a phase at the start of a run.
func (l *RateLimiter) ResetQuota(accountID string, kind phase.Kind, max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining[quotaKey{accountID, kind}] = max
}

// AllowAction reports whether the phase has quota left, without consuming.
func (l *RateLimiter) AllowAction(accountID string, kind phase.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining[quotaKey{accountID, kind}] > 0
}

// ConsumeAction decrements the remaining quota. Returns false if the quota
// was already exhausted; callers must check AllowAction before acting and
// consume only after a successful action.
func (l *RateLimiter) ConsumeAction(accountID string, kind phase.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := quotaKey{accountID, kind}
	if l.remaining[key] <= 0 {
		return false
	}
	l.remaining[key]--
	return true
}

// Remaining returns the quota left for a phase (for logging and tests).
func (l *RateLimiter) Remaining(accountID string, kind phase.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining[quotaKey{accountID, kind}]
}
