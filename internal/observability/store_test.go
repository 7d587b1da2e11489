package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteguard/internal/models"
	"noteguard/internal/store"
	"noteguard/internal/version"
)

func setupTestProvider(t *testing.T) *Provider {
	t.Helper()
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

func sampleEvent(id string) *models.WebhookEvent {
	return &models.WebhookEvent{
		ID:         id,
		Type:       "user.created",
		Object:     "event",
		Payload:    []byte(`{"type":"user.created","object":"event","data":{}}`),
		ReceivedAt: time.Now().UTC(),
	}
}

func TestNewInstrumentedEventStore(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedEventStore(store.NewMemoryStore())
	require.NoError(t, err)
	assert.NotNil(t, instrumented)
}

func TestInstrumentedEventStore_Operations(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedEventStore(store.NewMemoryStore())
	require.NoError(t, err)

	ctx := context.Background()

	err = instrumented.RecordEvent(ctx, sampleEvent("evt_1"))
	assert.NoError(t, err)

	result, err := instrumented.GetEvent(ctx, "evt_1")
	assert.NoError(t, err)
	assert.Equal(t, "evt_1", result.ID)

	events, err := instrumented.ListEvents(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, events, 1)

	err = instrumented.Close()
	assert.NoError(t, err)
}

func TestInstrumentedEventStore_ErrorsPropagate(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedEventStore(store.NewMemoryStore())
	require.NoError(t, err)
	defer instrumented.Close()

	ctx := context.Background()

	err = instrumented.RecordEvent(ctx, sampleEvent("evt_dup"))
	require.NoError(t, err)

	err = instrumented.RecordEvent(ctx, sampleEvent("evt_dup"))
	assert.ErrorIs(t, err, store.ErrDuplicateEvent)

	_, err = instrumented.GetEvent(ctx, "evt_missing")
	assert.ErrorIs(t, err, store.ErrEventNotFound)
}
