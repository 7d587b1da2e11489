package models

import "time"

// WebhookEvent is one accepted webhook delivery, recorded so that a
// redelivered (still fresh, validly signed) event is applied at most once.
// Payload holds the exact bytes the signature was computed over.
type WebhookEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Object     string    `json:"object"`
	APIVersion string    `json:"api_version,omitempty"`
	Payload    []byte    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}
