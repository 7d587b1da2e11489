// Package ratelimit provides fixed-window rate limiting for HTTP requests.
// Each tracked identifier gets an independent counter per policy; a counter
// resets (non-sliding) when its window elapses. The package defines the
// limiter contract, the policy and decision types used to populate standard
// rate limit response headers, and an in-memory implementation.
package ratelimit

import "time"

// Policy configures one fixed window: how long it lasts and how many
// requests it admits. Policies are immutable for the process lifetime.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Limit      int           // Policy ceiling, for X-RateLimit-Limit
	Remaining  int           // Requests left in the current window
	ResetAt    time.Time     // When the current window rolls over
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}

// Limiter defines the rate limiting contract. Implementations must be safe
// for concurrent use: check-then-increment on a shared counter is a critical
// section, and an unguarded implementation can admit more than MaxRequests
// requests per window.
type Limiter interface {
	// CheckAndConsume decides whether a request from identifier may proceed
	// under policy, consuming one slot of the window when it may. Identifiers
	// are opaque keys; empty or unusual identifiers are counted like any
	// other key.
	CheckAndConsume(identifier string, policy Policy) Decision

	// Close stops background goroutines and releases resources.
	Close()
}
