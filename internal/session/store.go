package session

import (
	"context"
	"sync"
	"time"
)

// Store tracks issued admin tokens and their expiry. It is injected into
// the Gate so a single-process deployment can use the in-memory table while
// a multi-instance deployment backs it with a shared store.
type Store interface {
	Put(ctx context.Context, token string, expires time.Time) error
	Get(ctx context.Context, token string) (time.Time, bool, error)
	Extend(ctx context.Context, token string, expires time.Time) error
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context, now time.Time) error
}

// MemoryStore is a process-local token table. Nothing in it survives a
// restart; that matches the original deployment model and is acceptable for
// a single instance only.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time)}
}

func (m *MemoryStore) Put(ctx context.Context, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = expires
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.sessions[token]
	return expires, ok, nil
}

func (m *MemoryStore) Extend(ctx context.Context, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; ok {
		m.sessions[token] = expires
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// PurgeExpired drops every entry whose expiry has passed. Called lazily on
// each login rather than from a background sweep.
func (m *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, expires := range m.sessions {
		if !now.Before(expires) {
			delete(m.sessions, token)
		}
	}
	return nil
}
