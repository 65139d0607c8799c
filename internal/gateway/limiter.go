package gateway

import (
	"sync"
	"time"
)

// SubscribeLimiter bounds how often one session may send subscribe frames,
// using a sliding window over recent attempts.
type SubscribeLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
}

func NewSubscribeLimiter(limit int, interval time.Duration) *SubscribeLimiter {
	return &SubscribeLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *SubscribeLimiter) Allow(sid string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[sid] = fresh
	return true
}

func (rl *SubscribeLimiter) Forget(sid string) {
	rl.mu.Lock()
	delete(rl.history, sid)
	rl.mu.Unlock()
}
