package cart

import (
	"encoding/json"
	"sync"

	"github.com/example/storefront/internal/catalog"
)

// StorageKey is the fixed key the serialized cart lives under.
const StorageKey = "storefront_cart_v1"

// CartItem is a catalog product plus the quantity in the cart. An item with
// quantity <= 0 never exists in a stored cart.
type CartItem struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// UnmarshalJSON decodes the embedded product with its type-tolerant rules,
// then the quantity. Without this the promoted Product.UnmarshalJSON would
// swallow the quantity field.
func (ci *CartItem) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &ci.Product); err != nil {
		return err
	}
	var aux struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ci.Quantity = aux.Quantity
	return nil
}

// Store is the client-side cart: a persisted list of line items with
// same-process change notification. Mutations are strictly ordered by call
// order and persist synchronously. No operation returns an error; a missing
// or failing Storage degrades to an in-memory cart for the rest of the
// session.
type Store struct {
	mu      sync.Mutex
	storage Storage // may be nil
	items   []CartItem
	loaded  bool
	subs    map[int]func([]CartItem)
	nextSub int
}

// NewStore creates a cart store. storage may be nil for a purely in-memory
// cart.
func NewStore(storage Storage) *Store {
	return &Store{
		storage: storage,
		subs:    make(map[int]func([]CartItem)),
	}
}

// Items returns a copy of the current cart. An empty cart is returned when
// nothing is persisted or the persisted value is unreadable.
func (s *Store) Items() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return copyItems(s.items)
}

// Set replaces the entire cart, persists it, and notifies subscribers.
func (s *Store) Set(items []CartItem) {
	s.mu.Lock()
	s.loaded = true
	s.items = copyItems(items)
	s.persist()
	snapshot, subs := copyItems(s.items), s.subscribers()
	s.mu.Unlock()

	notify(subs, snapshot)
}

// Add puts an item in the cart. When a line with the same id already exists
// the quantities merge instead of creating a duplicate line; ids are
// compared on their canonical string form. A non-positive incoming quantity
// counts as 1.
func (s *Store) Add(item CartItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.ID = catalog.NormalizeID(item.ID)

	s.mu.Lock()
	s.load()
	merged := false
	for i := range s.items {
		if catalog.NormalizeID(s.items[i].ID) == item.ID {
			s.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	s.persist()
	snapshot, subs := copyItems(s.items), s.subscribers()
	s.mu.Unlock()

	notify(subs, snapshot)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line; non-positive quantities are never stored.
func (s *Store) UpdateQuantity(id any, quantity int) {
	key := catalog.NormalizeID(id)

	s.mu.Lock()
	s.load()
	next := s.items[:0]
	for _, item := range s.items {
		if catalog.NormalizeID(item.ID) == key {
			if quantity <= 0 {
				continue
			}
			item.Quantity = quantity
		}
		next = append(next, item)
	}
	s.items = next
	s.persist()
	snapshot, subs := copyItems(s.items), s.subscribers()
	s.mu.Unlock()

	notify(subs, snapshot)
}

// Remove deletes the line with the given id, if present.
func (s *Store) Remove(id any) {
	key := catalog.NormalizeID(id)

	s.mu.Lock()
	s.load()
	next := s.items[:0]
	for _, item := range s.items {
		if catalog.NormalizeID(item.ID) != key {
			next = append(next, item)
		}
	}
	s.items = next
	s.persist()
	snapshot, subs := copyItems(s.items), s.subscribers()
	s.mu.Unlock()

	notify(subs, snapshot)
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.Set(nil)
}

// Subscribe registers a callback invoked with the new cart after every
// mutation. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func([]CartItem)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// load reads the persisted cart once. Unreadable or corrupt state means an
// empty cart, never an error.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.storage == nil {
		return
	}
	value, ok := s.storage.Get(StorageKey)
	if !ok {
		return
	}
	var items []CartItem
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return
	}
	// Carts written by older producers may lack quantities.
	for i := range items {
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
	}
	s.items = items
}

func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	data, err := json.Marshal(s.items)
	if err != nil {
		return
	}
	// A failed write leaves the in-memory cart authoritative.
	_ = s.storage.Set(StorageKey, string(data))
}

func (s *Store) subscribers() []func([]CartItem) {
	subs := make([]func([]CartItem), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func([]CartItem), items []CartItem) {
	for _, fn := range subs {
		fn(items)
	}
}

func copyItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
