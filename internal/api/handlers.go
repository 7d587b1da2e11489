// Package api exposes the enforcement edge over HTTP: the webhook intake
// endpoint, the health endpoint, and the guarded pass-through that the rate
// limit middleware protects.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"noteguard/internal/models"
	"noteguard/internal/store"
	"noteguard/internal/version"
)

// WebhookMetrics receives one observation per webhook delivery outcome.
// The observability package provides the production implementation.
type WebhookMetrics interface {
	RecordWebhookAccepted(ctx context.Context, eventType string)
	RecordWebhookRejection(ctx context.Context, reason string)
}

// Handlers contains the HTTP handlers for the noteguard API.
type Handlers struct {
	events     store.EventStore
	webhookCfg models.WebhookConfig
	metrics    WebhookMetrics
	minVersion *semver.Version
	startTime  time.Time

	// Missing-secret misconfiguration is logged once, not per delivery.
	secretWarnOnce sync.Once

	now func() time.Time
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handlers)

// WithWebhookMetrics wires delivery counters into the webhook handler.
func WithWebhookMetrics(metrics WebhookMetrics) HandlerOption {
	return func(h *Handlers) {
		h.metrics = metrics
	}
}

// NewHandlers creates a new handlers instance. An unparseable minimum API
// version is logged and disables the version check rather than failing.
func NewHandlers(events store.EventStore, webhookCfg models.WebhookConfig, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		events:     events,
		webhookCfg: webhookCfg,
		startTime:  time.Now(),
		now:        time.Now,
	}

	if webhookCfg.MinAPIVersion != "" {
		min, err := semver.NewVersion(webhookCfg.MinAPIVersion)
		if err != nil {
			slog.Error("Invalid minimum webhook API version, version check disabled",
				"min_api_version", webhookCfg.MinAPIVersion, "error", err)
		} else {
			h.minVersion = min
		}
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.GetInfo().Version
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	if h.webhookCfg.Secret == "" {
		response.Status = models.StatusDegraded
		response.AddComponent("webhook_secret", models.StatusUnhealthy,
			"webhook signing secret not configured, deliveries are rejected")
	} else {
		response.AddComponent("webhook_secret", models.StatusHealthy, "")
	}

	if _, err := h.events.ListEvents(r.Context(), 1); err != nil {
		response.Status = models.StatusDegraded
		response.AddComponent("event_store", models.StatusUnhealthy, err.Error())
	} else {
		response.AddComponent("event_store", models.StatusHealthy, "")
	}

	status := http.StatusOK
	if response.Status == models.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response with the given status code
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	errorResp := models.NewErrorResponse(message, errorCode)
	errorResp.RequestID = RequestIDFromContext(r.Context())
	h.writeJSONResponse(w, statusCode, errorResp)
}
