package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	fileName      = "prefs.json"
	fileVersion   = 2
	debounceDelay = 500 * time.Millisecond
)

// fileFormat is the on-disk layout of a JSONStore.
type fileFormat struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// JSONStore keeps preferences in memory and writes them to an atomic JSON
// file. Disk writes are debounced: the file is rewritten 500ms after the last
// change, or immediately on Flush.
type JSONStore struct {
	writeMu sync.Mutex // serializes Flush so snapshots hit disk in order

	mu      sync.Mutex
	path    string
	t       table
	timer   *time.Timer
	pending bool
}

// OpenJSONStore loads (or creates on first write) the store in dir.
// A missing or corrupt file yields an empty store.
func OpenJSONStore(dir string) (*JSONStore, error) {
	s := &JSONStore{
		path: filepath.Join(dir, fileName),
		t:    make(table),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Reload replaces the in-memory table with the file contents. It is skipped
// while a local write is pending so unsaved changes are never lost.
func (s *JSONStore) Reload() error {
	t, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		slog.Debug("prefs: reload skipped, local write pending", "path", s.path)
		return nil
	}
	s.t = t
	return nil
}

func (s *JSONStore) load() (table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(table), nil
		}
		return nil, err
	}
	t, err := decodeFile(data)
	if err != nil {
		slog.Warn("prefs: corrupt JSON prefs, starting empty", "path", s.path, "err", err)
		return make(table), nil
	}
	return t, nil
}

func (s *JSONStore) GetInt(key string, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.getInt(key, def)
}

func (s *JSONStore) GetFloat(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.getFloat(key, def)
}

func (s *JSONStore) GetString(key string, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.getString(key, def)
}

func (s *JSONStore) SetInt(key string, v int) error {
	s.set(key, Entry{Kind: KindInt, Int: v})
	return nil
}

func (s *JSONStore) SetFloat(key string, v float64) error {
	if err := checkFloat(key, v); err != nil {
		return err
	}
	s.set(key, Entry{Kind: KindFloat, Float: v})
	return nil
}

func (s *JSONStore) SetString(key string, v string) error {
	s.set(key, Entry{Kind: KindString, String: v})
	return nil
}

func (s *JSONStore) set(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t[key] = e
	s.scheduleLocked()
}

func (s *JSONStore) HasKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.t[key]
	return ok
}

func (s *JSONStore) DeleteKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t[key]; !ok {
		return nil
	}
	delete(s.t, key)
	s.scheduleLocked()
	return nil
}

func (s *JSONStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.keys()
}

// scheduleLocked (re)arms the debounced disk write. s.mu must be held.
func (s *JSONStore) scheduleLocked() {
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		if err := s.Flush(); err != nil {
			slog.Error("prefs: failed to write prefs", "path", s.path, "err", err)
		}
	})
}

// Flush forces an immediate write of any pending state.
func (s *JSONStore) Flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	snap := s.t.clone()
	s.pending = false
	s.mu.Unlock()

	if err := s.writeAtomic(snap); err != nil {
		s.mu.Lock()
		s.pending = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *JSONStore) writeAtomic(t table) error {
	data, err := json.MarshalIndent(fileFormat{Version: fileVersion, Entries: t}, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// lockFile takes an exclusive advisory lock so two processes sharing a
// config directory never interleave writes.
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("prefs: open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("prefs: flock %s: %w", path, err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// Ensure JSONStore implements prefs.Store
var _ Store = (*JSONStore)(nil)
