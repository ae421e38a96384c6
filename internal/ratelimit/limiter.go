// Package ratelimit gates requests per identity with a fixed cooldown window.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is used when a non-positive cooldown is configured.
const DefaultCooldown = 30 * time.Second

// Limiter tracks the last accepted request per identity.
// Records are never evicted; see DESIGN.md for the growth trade-off.
type Limiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[int64]time.Time
	now      func() time.Time
}

// New creates a limiter with the given cooldown window.
func New(cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Limiter{
		cooldown: cooldown,
		last:     make(map[int64]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether identity may proceed. On allow the timestamp is
// recorded under the same lock as the check; on deny nothing changes.
func (l *Limiter) Allow(identity int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[identity]; ok && now.Sub(last) < l.cooldown {
		return false
	}
	l.last[identity] = now
	return true
}

// Remaining returns how long identity must wait before Allow succeeds.
func (l *Limiter) Remaining(identity int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[identity]
	if !ok {
		return 0
	}
	wait := l.cooldown - l.now().Sub(last)
	if wait < 0 {
		return 0
	}
	return wait
}

// Cooldown returns the configured window.
func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
