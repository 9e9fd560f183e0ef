package settings_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-prefs/internal/prefs"
)

var errDiskFull = errors.New("disk full")

// failingStore rejects every write.
type failingStore struct {
	*prefs.MemStore
}

func (failingStore) SetInt(string, int) error       { return errDiskFull }
func (failingStore) SetFloat(string, float64) error { return errDiskFull }
func (failingStore) SetString(string, string) error { return errDiskFull }

// inlineDispatcher runs posted functions immediately under a lock and counts them.
type inlineDispatcher struct {
	mu    sync.Mutex
	posts atomic.Int32
}

func (d *inlineDispatcher) Post(fn func()) {
	d.posts.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// waitFor polls cond until it is true or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
