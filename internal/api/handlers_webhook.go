package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"

	"noteguard/internal/models"
	"noteguard/internal/store"
	"noteguard/internal/webhook"
)

// SignatureHeader carries the delivery timestamp and HMAC digest.
const SignatureHeader = "X-Webhook-Signature"

// maxWebhookBody bounds the payload read; identity events are small.
const maxWebhookBody = 1 << 20

// Rejection reasons as recorded in logs and metrics. Callers only ever see
// the uniform 401/400, never which check failed.
const (
	rejectConfiguration = "configuration"
	rejectSignature     = "signature"
	rejectTimestamp     = "stale_timestamp"
	rejectShape         = "shape"
)

// HandleIdentityWebhook handles inbound identity provider deliveries
// POST /api/webhooks/identity
//
// A delivery is accepted only when signature, timestamp freshness, and
// envelope shape all hold. Signature and freshness failures share one 401
// body; the failing check is logged for operators but never echoed.
func (h *Handlers) HandleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest,
			"Unable to read request body")
		return
	}

	if h.webhookCfg.Secret == "" {
		// Fail closed. Without the shared secret no delivery can be
		// authenticated, and 503 tells the sender to retry after the
		// operator fixes the deployment.
		h.secretWarnOnce.Do(func() {
			slog.Error("Webhook signing secret not configured, rejecting all deliveries")
		})
		h.rejectWebhook(r, rejectConfiguration)
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable,
			"Webhook processing is not available")
		return
	}

	header := r.Header.Get(SignatureHeader)

	if !webhook.VerifySignature(rawBody, header, h.webhookCfg.Secret) {
		slog.Warn("Webhook rejected", "reason", rejectSignature, "remote_addr", r.RemoteAddr)
		h.rejectWebhook(r, rejectSignature)
		h.writeErrorResponse(w, r, http.StatusUnauthorized, models.ErrorCodeUnauthorized,
			"Webhook verification failed")
		return
	}

	if !webhook.TimestampFresh(header, h.tolerance(), h.now()) {
		slog.Warn("Webhook rejected", "reason", rejectTimestamp, "remote_addr", r.RemoteAddr)
		h.rejectWebhook(r, rejectTimestamp)
		h.writeErrorResponse(w, r, http.StatusUnauthorized, models.ErrorCodeUnauthorized,
			"Webhook verification failed")
		return
	}

	if !webhook.ValidEnvelopeShape(rawBody) {
		slog.Warn("Webhook rejected", "reason", rejectShape, "remote_addr", r.RemoteAddr)
		h.rejectWebhook(r, rejectShape)
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeInvalidRequest,
			"Invalid webhook payload")
		return
	}

	event, err := webhook.ParseEnvelope(rawBody, h.now().UTC())
	if err != nil {
		// Shape already validated; this only fires on JSON the decoder
		// accepts structurally but the envelope parser cannot use.
		slog.Warn("Webhook rejected", "reason", rejectShape, "error", err)
		h.rejectWebhook(r, rejectShape)
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeInvalidRequest,
			"Invalid webhook payload")
		return
	}

	h.checkAPIVersion(event)

	status := "accepted"
	if err := h.events.RecordEvent(r.Context(), event); err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			// Redelivery of an already recorded event. Acknowledge so the
			// sender stops retrying; processing happened the first time.
			status = "duplicate"
		} else {
			slog.Error("Failed to record webhook event", "event_id", event.ID, "error", err)
			h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError,
				"Unable to record event")
			return
		}
	}

	if h.metrics != nil {
		h.metrics.RecordWebhookAccepted(r.Context(), event.Type)
	}

	slog.Info("Webhook accepted",
		"event_id", event.ID,
		"event_type", event.Type,
		"status", status)

	h.writeJSONResponse(w, http.StatusAccepted, &models.WebhookAckResponse{
		ID:         event.ID,
		Status:     status,
		ReceivedAt: event.ReceivedAt,
	})
}

func (h *Handlers) tolerance() time.Duration {
	if h.webhookCfg.Tolerance > 0 {
		return h.webhookCfg.Tolerance
	}
	return webhook.DefaultTolerance
}

// checkAPIVersion warns when a delivery predates the minimum supported
// envelope version. Old versions are still accepted.
func (h *Handlers) checkAPIVersion(event *models.WebhookEvent) {
	if h.minVersion == nil || event.APIVersion == "" {
		return
	}

	v, err := semver.NewVersion(event.APIVersion)
	if err != nil {
		slog.Warn("Webhook carries unparseable API version",
			"event_id", event.ID, "api_version", event.APIVersion)
		return
	}

	if v.LessThan(h.minVersion) {
		slog.Warn("Webhook API version below supported minimum",
			"event_id", event.ID,
			"api_version", event.APIVersion,
			"min_api_version", h.minVersion.String())
	}
}

func (h *Handlers) rejectWebhook(r *http.Request, reason string) {
	if h.metrics != nil {
		h.metrics.RecordWebhookRejection(r.Context(), reason)
	}
}
