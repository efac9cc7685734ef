package cart

import (
	"os"
	"path/filepath"
	"sync"
)

// Storage persists the cart under a fixed key. Implementations may fail or
// be absent entirely; the Store degrades to a non-persisted in-memory cart
// in that case and never surfaces the failure to callers.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// MemoryStorage is a process-local key/value store.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// FileStorage keeps each key in its own file under a directory, surviving
// process restarts the way browser local storage survives page loads.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (f *FileStorage) Get(key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(f.dir, key+".json"))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (f *FileStorage) Set(key, value string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.dir, key+".json"), []byte(value), 0o644)
}
