package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"noteguard/internal/models"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.URL.Path != "/metrics"
			}),
		))
	}
}

// SetupRoutes configures the HTTP routes. The webhook intake and health
// endpoints sit outside the rate limit middleware: webhooks are guarded by
// signature verification instead, and health probes must never be throttled.
// Everything else under /api/ passes through limit and then to the upstream
// application (or 404 when no upstream is configured).
func SetupRoutes(handlers *Handlers, config *models.Config, limit mux.MiddlewareFunc, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	router.HandleFunc("/api/webhooks/identity", handlers.HandleIdentityWebhook).Methods("POST")
	router.HandleFunc("/api/webhooks/identity", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")

	guarded := router.PathPrefix("/api/").Subrouter()
	if limit != nil {
		guarded.Use(limit)
	}
	guarded.PathPrefix("").Handler(upstreamHandler(config.Server.UpstreamURL))

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	return router
}

// upstreamHandler proxies guarded requests to the note application. With no
// upstream configured (tests, standalone enforcement), guarded paths answer
// 404 after the rate limit decision has been applied.
func upstreamHandler(upstream string) http.Handler {
	if upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.NewErrorResponse("Not found", models.ErrorCodeNotFound))
		})
	}

	target, err := url.Parse(upstream)
	if err != nil {
		// Config validation catches this before startup; guard anyway.
		slog.Error("Invalid upstream URL, guarded routes answer 404", "upstream", upstream, "error", err)
		return upstreamHandler("")
	}

	return httputil.NewSingleHostReverseProxy(target)
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest)
	json.NewEncoder(w).Encode(errorResp)
}
