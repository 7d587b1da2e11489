// Package store records accepted webhook deliveries so that a redelivered
// event is applied at most once. It provides a clean interface with
// in-memory, SQLite, and PostgreSQL backends behind a factory.
package store

import (
	"context"
	"errors"

	"noteguard/internal/models"
)

// ErrDuplicateEvent is returned when an event with the same delivery id has
// already been recorded.
var ErrDuplicateEvent = errors.New("webhook event already recorded")

// ErrEventNotFound is returned when no event exists for the given id.
var ErrEventNotFound = errors.New("webhook event not found")

// EventStore persists accepted webhook deliveries.
type EventStore interface {
	// RecordEvent stores a new event, returning ErrDuplicateEvent when the
	// delivery id has been seen before.
	RecordEvent(ctx context.Context, event *models.WebhookEvent) error

	// GetEvent retrieves a recorded event by its delivery id.
	GetEvent(ctx context.Context, id string) (*models.WebhookEvent, error)

	// ListEvents returns up to limit recorded events, newest first.
	ListEvents(ctx context.Context, limit int) ([]*models.WebhookEvent, error)

	// Close closes the store and releases resources.
	Close() error
}
