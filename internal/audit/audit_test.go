package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/storage"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewBus(engine)
}

func TestPublish_PersistsAndIncrementsEpoch(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	before := b.Epoch()
	rec, err := b.Publish(ctx, Event{EventType: "entry_created", EntryID: "e1", ScopeID: "s1", Actor: "tester"})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, before+1, b.Epoch())
}

func TestQuery_FiltersByEntryScopeAndType(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	_, err := b.Publish(ctx, Event{EventType: "entry_created", EntryID: "e1", ScopeID: "s1", Actor: "tester"})
	require.NoError(t, err)
	_, err = b.Publish(ctx, Event{EventType: "entry_updated", EntryID: "e1", ScopeID: "s1", Actor: "tester"})
	require.NoError(t, err)
	_, err = b.Publish(ctx, Event{EventType: "entry_created", EntryID: "e2", ScopeID: "s2", Actor: "tester"})
	require.NoError(t, err)

	records, err := b.Query(ctx, "e1", "", "", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = b.Query(ctx, "", "", "entry_created", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = b.Query(ctx, "e1", "s1", "entry_updated", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "entry_updated", records[0].EventType)
}

func TestSubscribe_ReceivesPublishedEvent(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	ch, cancel := b.Subscribe(4)
	defer cancel()

	_, err := b.Publish(ctx, Event{EventType: "entry_created", EntryID: "e1", ScopeID: "s1", Actor: "tester"})
	require.NoError(t, err)

	select {
	case rec := <-ch:
		assert.Equal(t, "entry_created", rec.EventType)
	case <-time.After(time.Second):
		t.Fatal("expected subscriber to receive published event")
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	b := newTestBus(t)

	ch, cancel := b.Subscribe(1)
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}
