package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// MemoryStore Tests
// ============================================

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	expires := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(context.Background(), "tok-1", expires))

	got, ok, err := store.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, expires, got)
}

func TestMemoryStore_GetUnknownToken(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Extend(t *testing.T) {
	store := NewMemoryStore()
	first := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	later := first.Add(24 * time.Hour)

	require.NoError(t, store.Put(context.Background(), "tok-1", first))
	require.NoError(t, store.Extend(context.Background(), "tok-1", later))

	got, ok, err := store.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, later, got)
}

func TestMemoryStore_ExtendUnknownTokenDoesNotCreate(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Extend(context.Background(), "missing", time.Now().Add(time.Hour)))

	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "tok-1", time.Now().Add(time.Hour)))

	require.NoError(t, store.Delete(context.Background(), "tok-1"))

	_, ok, err := store.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(context.Background(), "stale", now.Add(-time.Minute)))
	require.NoError(t, store.Put(context.Background(), "boundary", now))
	require.NoError(t, store.Put(context.Background(), "live", now.Add(time.Hour)))

	require.NoError(t, store.PurgeExpired(context.Background(), now))

	_, ok, _ := store.Get(context.Background(), "stale")
	assert.False(t, ok)
	// An entry expiring exactly now is already dead.
	_, ok, _ = store.Get(context.Background(), "boundary")
	assert.False(t, ok)
	_, ok, _ = store.Get(context.Background(), "live")
	assert.True(t, ok)
}
