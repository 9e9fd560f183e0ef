package prefs

import "sync"

// MemStore is an in-memory Store that never writes to disk. Tests use it,
// and so does the daemon with --store memory.
type MemStore struct {
	mu     sync.Mutex
	t      table
	writes int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{t: make(table)}
}

func (m *MemStore) GetInt(key string, def int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.getInt(key, def)
}

func (m *MemStore) GetFloat(key string, def float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.getFloat(key, def)
}

func (m *MemStore) GetString(key string, def string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.getString(key, def)
}

func (m *MemStore) SetInt(key string, v int) error {
	return m.set(key, Entry{Kind: KindInt, Int: v})
}

func (m *MemStore) SetFloat(key string, v float64) error {
	if err := checkFloat(key, v); err != nil {
		return err
	}
	return m.set(key, Entry{Kind: KindFloat, Float: v})
}

func (m *MemStore) SetString(key string, v string) error {
	return m.set(key, Entry{Kind: KindString, String: v})
}

func (m *MemStore) set(key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t[key] = e
	m.writes++
	return nil
}

func (m *MemStore) HasKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.t[key]
	return ok
}

func (m *MemStore) DeleteKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.t, key)
	return nil
}

func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.keys()
}

// Writes returns how many Set calls the store has accepted.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

// Ensure MemStore implements prefs.Store
var _ Store = (*MemStore)(nil)
