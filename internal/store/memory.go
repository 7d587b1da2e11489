package store

import (
	"context"
	"sort"
	"sync"

	"noteguard/internal/models"
)

// MemoryStore is an in-memory EventStore for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*models.WebhookEvent
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*models.WebhookEvent),
	}
}

func (ms *MemoryStore) RecordEvent(_ context.Context, event *models.WebhookEvent) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.events[event.ID]; exists {
		return ErrDuplicateEvent
	}

	stored := *event
	ms.events[event.ID] = &stored
	return nil
}

func (ms *MemoryStore) GetEvent(_ context.Context, id string) (*models.WebhookEvent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	event, exists := ms.events[id]
	if !exists {
		return nil, ErrEventNotFound
	}

	found := *event
	return &found, nil
}

func (ms *MemoryStore) ListEvents(_ context.Context, limit int) ([]*models.WebhookEvent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	events := make([]*models.WebhookEvent, 0, len(ms.events))
	for _, event := range ms.events {
		found := *event
		events = append(events, &found)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ReceivedAt.After(events[j].ReceivedAt)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
