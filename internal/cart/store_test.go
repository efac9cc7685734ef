package cart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/catalog"
)

func newItem(id string, quantity int) CartItem {
	return CartItem{
		Product:  catalog.Product{ID: id, Name: "item-" + id, Price: 10},
		Quantity: quantity,
	}
}

// failingStorage refuses every operation, standing in for an unavailable
// browser storage context.
type failingStorage struct{}

func (failingStorage) Get(key string) (string, bool) { return "", false }
func (failingStorage) Set(key, value string) error   { return errors.New("storage unavailable") }

// ============================================
// Basic Operations
// ============================================

func TestStore_EmptyByDefault(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	assert.Empty(t, store.Items())
}

func TestStore_AddAndGet(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.Add(newItem("p1", 2))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestStore_AddDefaultsQuantityToOne(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.Add(newItem("p1", 0))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestStore_Remove(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	store.Add(newItem("p1", 1))
	store.Add(newItem("p2", 1))

	store.Remove("p1")

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	store.Add(newItem("p1", 3))

	store.Clear()

	assert.Empty(t, store.Items())
}

// ============================================
// Merge-by-ID Tests
// ============================================

func TestStore_AddMergesSameID(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.Add(newItem("p1", 2))
	store.Add(newItem("p1", 3))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestStore_AddMergesNumericAndStringIDs(t *testing.T) {
	// A persisted cart written by an older producer may carry numeric ids.
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, `[{"id": 19, "name": "Scarf", "price": 25, "quantity": 1}]`))
	store := NewStore(storage)

	store.Add(newItem("19", 1))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

// ============================================
// Quantity Invariant Tests
// ============================================

func TestStore_UpdateQuantity(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	store.Add(newItem("p1", 1))

	store.UpdateQuantity("p1", 4)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestStore_UpdateQuantityToZeroRemovesLine(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	store.Add(newItem("p1", 2))

	store.UpdateQuantity("p1", 0)

	assert.Empty(t, store.Items())
}

func TestStore_QuantityNeverNonPositive(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.Add(newItem("p1", 3))
	store.Add(newItem("p2", 1))
	store.UpdateQuantity("p1", -5)
	store.UpdateQuantity("p2", 2)
	store.Add(newItem("p3", 0))
	store.UpdateQuantity("p3", 0)

	for _, item := range store.Items() {
		assert.Greater(t, item.Quantity, 0, "item %s has non-positive quantity", item.ID)
	}
}

// ============================================
// Persistence & Degradation Tests
// ============================================

func TestStore_PersistsAcrossInstances(t *testing.T) {
	storage := NewMemoryStorage()

	first := NewStore(storage)
	first.Add(newItem("p1", 2))

	second := NewStore(storage)
	items := second.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestStore_NilStorageDegradesToMemory(t *testing.T) {
	store := NewStore(nil)

	store.Add(newItem("p1", 1))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}

func TestStore_FailingStorageNeverSurfaces(t *testing.T) {
	store := NewStore(failingStorage{})

	store.Add(newItem("p1", 1))
	store.UpdateQuantity("p1", 2)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestStore_CorruptPersistedStateMeansEmptyCart(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, "{not json"))

	store := NewStore(storage)

	assert.Empty(t, store.Items())
}

func TestStore_LegacyItemsWithoutQuantity(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, `[{"id": "p1", "name": "Scarf"}]`))

	store := NewStore(storage)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	storage := NewFileStorage(t.TempDir())

	require.NoError(t, storage.Set(StorageKey, `[{"id":"p1","quantity":1}]`))

	value, ok := storage.Get(StorageKey)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"p1","quantity":1}]`, value)

	_, ok = storage.Get("missing")
	assert.False(t, ok)
}

// ============================================
// Change Notification Tests
// ============================================

func TestStore_SubscribersNotifiedOnEveryMutation(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	var calls [][]CartItem
	cancel := store.Subscribe(func(items []CartItem) {
		calls = append(calls, items)
	})

	store.Add(newItem("p1", 1))
	store.UpdateQuantity("p1", 3)
	store.Remove("p1")
	store.Clear()

	require.Len(t, calls, 4)
	assert.Equal(t, 3, calls[1][0].Quantity)
	assert.Empty(t, calls[2])

	cancel()
	store.Add(newItem("p2", 1))
	assert.Len(t, calls, 4)
}

func TestStore_SetNotifiesWithReplacement(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	var last []CartItem
	store.Subscribe(func(items []CartItem) { last = items })

	store.Set([]CartItem{newItem("p1", 2), newItem("p2", 1)})

	require.Len(t, last, 2)
	assert.Equal(t, "p1", last[0].ID)
}
