package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/micro-nova/amplipi-prefs/internal/dispatch"
	"github.com/micro-nova/amplipi-prefs/internal/events"
	"github.com/micro-nova/amplipi-prefs/internal/prefs"
)

// Parameter is a single named, typed settings value backed by a prefs.Store.
//
// It is safe for concurrent use. Listeners run outside the internal lock, so
// they may call back into the parameter.
type Parameter[V comparable] struct {
	key      string
	def      V
	store    prefs.Store
	codec    Codec[V]
	strategy CommitStrategy

	mu    sync.Mutex
	value V
	dirty bool

	changed   events.Signal[V]
	committed events.Signal[V]
}

// New creates a parameter for key, initialised from the store (or def when
// the store holds nothing for key). The key is trimmed; an empty key is
// rejected with ErrInvalidKey.
func New[V comparable](store prefs.Store, key string, def V, strategy CommitStrategy, codec Codec[V]) (*Parameter[V], error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if codec.Read == nil || codec.Write == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCodec, trimmed)
	}
	if err := strategy.validate(); err != nil {
		return nil, err
	}

	p := &Parameter[V]{
		key:      trimmed,
		def:      def,
		store:    store,
		codec:    codec,
		strategy: strategy,
	}
	p.value = codec.Read(store, trimmed, def)
	return p, nil
}

// NewBool creates a bool parameter stored as int 0/1.
func NewBool(store prefs.Store, key string, def bool, strategy CommitStrategy) (*Parameter[bool], error) {
	return New(store, key, def, strategy, BoolCodec)
}

// NewInt creates an int parameter.
func NewInt(store prefs.Store, key string, def int, strategy CommitStrategy) (*Parameter[int], error) {
	return New(store, key, def, strategy, IntCodec)
}

// NewFloat creates a float parameter.
func NewFloat(store prefs.Store, key string, def float64, strategy CommitStrategy) (*Parameter[float64], error) {
	return New(store, key, def, strategy, FloatCodec)
}

// NewString creates a string parameter.
func NewString(store prefs.Store, key string, def string, strategy CommitStrategy) (*Parameter[string], error) {
	return New(store, key, def, strategy, StringCodec)
}

// Key returns the trimmed store key.
func (p *Parameter[V]) Key() string { return p.key }

// Kind returns the codec's kind.
func (p *Parameter[V]) Kind() Kind { return p.codec.Kind }

// Strategy returns the commit strategy fixed at construction.
func (p *Parameter[V]) Strategy() CommitStrategy { return p.strategy }

// Default returns the default supplied at construction.
func (p *Parameter[V]) Default() V { return p.def }

// Value returns the current in-memory value.
func (p *Parameter[V]) Value() V {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// IsDirty reports whether the value changed since the last commit.
func (p *Parameter[V]) IsDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// OnChanged fires after every accepted SetValue with the new value.
func (p *Parameter[V]) OnChanged() *events.Signal[V] { return &p.changed }

// OnCommitted fires after every successful Commit with the written value.
func (p *Parameter[V]) OnCommitted() *events.Signal[V] { return &p.committed }

// CheckIfSame reports whether v equals the current value. NaN equals NaN.
func (p *Parameter[V]) CheckIfSame(v V) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return same(p.value, v)
}

// SetValue updates the in-memory value. Setting the current value again is a
// no-op. Otherwise the parameter becomes dirty, OnChanged fires, and an
// AutoCommit parameter commits before returning; only that write can fail.
func (p *Parameter[V]) SetValue(v V) error {
	p.mu.Lock()
	if same(p.value, v) {
		p.mu.Unlock()
		return nil
	}
	p.value = v
	p.dirty = true
	p.mu.Unlock()

	p.changed.Emit(v)

	if p.strategy == AutoCommit {
		return p.Commit()
	}
	return nil
}

// Commit writes the value to the store if it is dirty, then fires
// OnCommitted. A store error is returned as is and leaves the parameter dirty.
func (p *Parameter[V]) Commit() error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	v := p.value
	if err := p.codec.Write(p.store, p.key, v); err != nil {
		p.mu.Unlock()
		return err
	}
	p.dirty = false
	p.mu.Unlock()

	slog.Debug("settings: committed", "key", p.key, "value", v)
	p.committed.Emit(v)
	return nil
}

// Reload re-reads the stored value. A dirty parameter keeps its uncommitted
// value. When the stored value differs, the parameter takes it and OnChanged
// fires; nothing is written back. Reload reports whether the value changed.
func (p *Parameter[V]) Reload() bool {
	p.mu.Lock()
	if p.dirty {
		p.mu.Unlock()
		return false
	}
	v := p.codec.Read(p.store, p.key, p.def)
	if same(p.value, v) {
		p.mu.Unlock()
		return false
	}
	p.value = v
	p.mu.Unlock()

	p.changed.Emit(v)
	return true
}

// Debounced wraps p in a Debounced coordinator. See NewDebounced.
func (p *Parameter[V]) Debounced(ctx context.Context, window time.Duration, d dispatch.Dispatcher) (*Debounced[V], error) {
	return NewDebounced(ctx, p, window, d)
}

// same compares with ==, treating NaN as equal to itself.
func same[V comparable](a, b V) bool {
	return a == b || (a != a && b != b)
}
