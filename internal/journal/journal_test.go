package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"main/internal/cache"
	"main/internal/entity"
)

func TestMemoryRecordsLifecycle(t *testing.T) {
	recorder := NewMemory()
	store := cache.New(cache.WithRecorder(recorder))
	defer store.Close()

	key := entity.NewKey(entity.TypeMarket, "ETHUSDT")
	store.ApplyRemote(key, entity.Data{"price": 100}, 1)

	updateID, err := store.ApplyOptimistic(key, entity.Patch{"price": 102}, time.Minute)
	require.NoError(t, err)

	store.ApplyRemote(key, entity.Data{"price": 107}, 2)
	conflicts := store.Conflicts()
	require.Len(t, conflicts, 1)
	require.True(t, store.ResolveConflict(conflicts[0].ID, cache.StrategyRemote))

	kinds := make([]cache.EventKind, 0, recorder.Len())
	for _, e := range recorder.Events() {
		kinds = append(kinds, e.Kind)
	}
	require.Equal(t, []cache.EventKind{
		cache.EventRemoteApplied,
		cache.EventOptimisticApplied,
		cache.EventConflictRaised,
		cache.EventRolledBack,
		cache.EventConflictResolved,
	}, kinds)

	events := recorder.Events()
	raised := events[2]
	require.Equal(t, key, raised.Key)
	require.Equal(t, updateID, raised.UpdateID)
	require.Equal(t, conflicts[0].ID, raised.ConflictID)
	require.EqualValues(t, 2, raised.Version)

	resolved := events[4]
	require.Equal(t, cache.StrategyRemote, resolved.Strategy)
	require.False(t, resolved.At.IsZero())
}

func TestEntryTableName(t *testing.T) {
	require.Equal(t, "sync_events", Entry{}.TableName())
}
