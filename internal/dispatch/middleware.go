package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"noteguard/internal/models"
)

// MetricsRecorder receives one observation per enforced request. The
// observability package provides the production implementation.
type MetricsRecorder interface {
	RecordRateDecision(ctx context.Context, class string, allowed bool)
}

// MiddlewareOption configures the enforcement middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	metrics MetricsRecorder
}

// WithMetrics wires decision counters into the middleware.
func WithMetrics(recorder MetricsRecorder) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.metrics = recorder
	}
}

// Middleware enforces rate limits on every classified request. Allowed
// requests proceed with X-RateLimit-* headers attached; exhausted callers
// get 429 with Retry-After and a JSON body carrying the window reset time.
// Unclassified routes pass through untouched.
func Middleware(enforcer *Enforcer, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := enforcer.Enforce(r)
			if !result.Limited {
				next.ServeHTTP(w, r)
				return
			}

			d := result.Decision
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))

			if cfg.metrics != nil {
				cfg.metrics.RecordRateDecision(r.Context(), result.Class.String(), d.Allowed)
			}

			if !d.Allowed {
				retryAfterSecs := int(d.RetryAfter.Seconds())
				if d.RetryAfter > time.Duration(retryAfterSecs)*time.Second {
					retryAfterSecs++ // round up, never tell callers to retry early
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.NewRateLimitedResponse(d.ResetAt))

				// Expected behavior under load, not an error
				enforcer.logger.Warn("Rate limit exceeded",
					"identifier", result.Identifier,
					"route_class", result.Class.String(),
					"limit", d.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
