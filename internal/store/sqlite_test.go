package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "events.db")
	ss, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })
	return ss
}

func TestSQLiteStore_RequiresDSN(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	ss := newSQLiteTestStore(t)
	ctx := context.Background()

	event := testEvent("evt_1")
	require.NoError(t, ss.RecordEvent(ctx, event))

	got, err := ss.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.Object, got.Object)
	assert.Equal(t, event.APIVersion, got.APIVersion)
	assert.Equal(t, event.Payload, got.Payload)
}

func TestSQLiteStore_DuplicateEvent(t *testing.T) {
	ss := newSQLiteTestStore(t)
	ctx := context.Background()

	require.NoError(t, ss.RecordEvent(ctx, testEvent("evt_1")))
	assert.ErrorIs(t, ss.RecordEvent(ctx, testEvent("evt_1")), ErrDuplicateEvent)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	ss := newSQLiteTestStore(t)

	_, err := ss.GetEvent(context.Background(), "evt_missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestSQLiteStore_ListEvents(t *testing.T) {
	ss := newSQLiteTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 4; i++ {
		event := testEvent(fmt.Sprintf("evt_%d", i))
		event.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, ss.RecordEvent(ctx, event))
	}

	events, err := ss.ListEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt_3", events[0].ID)
	assert.Equal(t, "evt_2", events[1].ID)
}
