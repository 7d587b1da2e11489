package ratelimit

import (
	"sync"
	"time"
)

// window tracks admissions for one identifier under one policy.
type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is an in-memory fixed-window rate limiter. Each policy keeps
// its own identifier map, so counters under different policies never
// interact. Windows are created lazily on first request, replaced in place
// once the wall clock passes their reset time, and evicted by a background
// goroutine once expired to bound memory growth.
//
// State is process-local: horizontally scaled deployments under-enforce
// because each instance keeps its own counters. Sharing window state across
// instances is out of scope for this limiter.
type MemoryLimiter struct {
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	windows map[Policy]map[string]*window
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter creates a fixed-window limiter and starts its background
// sweeper. sweepInterval controls how often expired windows are evicted; the
// cadence only affects memory footprint, never admission decisions.
func NewMemoryLimiter(sweepInterval time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		sweepInterval: sweepInterval,
		now:           time.Now,
		windows:       make(map[Policy]map[string]*window),
		done:          make(chan struct{}),
	}
	go m.sweep()
	return m
}

// CheckAndConsume decides whether a request from identifier may proceed
// under policy. A fresh or rolled-over window admits the request with
// count 1; a live window admits until the count reaches policy.MaxRequests.
// Denied requests never increment the counter.
func (m *MemoryLimiter) CheckAndConsume(identifier string, policy Policy) Decision {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.windows[policy]
	if !ok {
		byID = make(map[string]*window)
		m.windows[policy] = byID
	}

	w, exists := byID[identifier]
	if !exists || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(policy.Window)}
		byID[identifier] = w
		return Decision{
			Allowed:   true,
			Limit:     policy.MaxRequests,
			Remaining: policy.MaxRequests - 1,
			ResetAt:   w.resetAt,
		}
	}

	if w.count < policy.MaxRequests {
		w.count++
		return Decision{
			Allowed:   true,
			Limit:     policy.MaxRequests,
			Remaining: policy.MaxRequests - w.count,
			ResetAt:   w.resetAt,
		}
	}

	return Decision{
		Allowed:    false,
		Limit:      policy.MaxRequests,
		Remaining:  0,
		ResetAt:    w.resetAt,
		RetryAfter: w.resetAt.Sub(now),
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

// sweep periodically evicts expired windows.
func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

// evictExpired removes windows whose reset time has passed.
func (m *MemoryLimiter) evictExpired() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, byID := range m.windows {
		for id, w := range byID {
			if !now.Before(w.resetAt) {
				delete(byID, id)
			}
		}
	}
}
