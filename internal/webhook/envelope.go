package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"noteguard/internal/models"
)

// ParseEnvelope decodes an already shape-validated payload into a
// WebhookEvent, preserving the raw bytes. Deliveries without an id get a
// generated one; such events cannot be deduplicated across redeliveries.
func ParseEnvelope(payload []byte, receivedAt time.Time) (*models.WebhookEvent, error) {
	var raw struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Object     string `json:"object"`
		APIVersion string `json:"api_version"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode webhook envelope: %w", err)
	}

	id := raw.ID
	if id == "" {
		id = uuid.New().String()
	}

	body := make([]byte, len(payload))
	copy(body, payload)

	return &models.WebhookEvent{
		ID:         id,
		Type:       raw.Type,
		Object:     raw.Object,
		APIVersion: raw.APIVersion,
		Payload:    body,
		ReceivedAt: receivedAt,
	}, nil
}
