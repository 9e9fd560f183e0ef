package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Setting is the type-erased view of a Parameter or Debounced used by
// registries, admin tooling and the HTTP API.
type Setting interface {
	Key() string
	Kind() Kind
	Strategy() CommitStrategy
	Get() any
	DefaultValue() any
	IsDirty() bool
	// SetFromString parses s for the setting's kind and applies it.
	SetFromString(s string) error
	Commit() error
	// Flush commits any pending value as soon as possible.
	Flush() error
	// Window is the debounce window, zero when not debounced.
	Window() time.Duration
	// Pending reports whether a deferred commit is scheduled.
	Pending() bool
	// Reload re-reads a clean setting from its store.
	Reload() bool
}

var (
	_ Setting = (*Parameter[int])(nil)
	_ Setting = (*Debounced[int])(nil)
)

// Get returns the current value as any.
func (p *Parameter[V]) Get() any { return p.Value() }

// DefaultValue returns the default as any.
func (p *Parameter[V]) DefaultValue() any { return p.def }

// SetFromString parses s with the codec and calls SetValue.
func (p *Parameter[V]) SetFromString(s string) error {
	v, err := p.parse(s)
	if err != nil {
		return err
	}
	return p.SetValue(v)
}

// Flush is Commit for a plain parameter.
func (p *Parameter[V]) Flush() error { return p.Commit() }

// Window is zero: a plain parameter is never debounced.
func (p *Parameter[V]) Window() time.Duration { return 0 }

// Pending is always false for a plain parameter.
func (p *Parameter[V]) Pending() bool { return false }

func (p *Parameter[V]) parse(s string) (V, error) {
	var zero V
	if p.codec.Parse == nil {
		return zero, fmt.Errorf("%w: %q cannot be set from text", ErrInvalidValue, p.key)
	}
	v, err := p.codec.Parse(s)
	if err != nil {
		return zero, fmt.Errorf("%w: %q: %v", ErrInvalidValue, p.key, err)
	}
	return v, nil
}

// Get returns the current value as any.
func (b *Debounced[V]) Get() any { return b.p.Value() }

// DefaultValue returns the default as any.
func (b *Debounced[V]) DefaultValue() any { return b.p.def }

// SetFromString parses s and calls SetValue.
func (b *Debounced[V]) SetFromString(s string) error {
	v, err := b.p.parse(s)
	if err != nil {
		return err
	}
	b.SetValue(v)
	return nil
}

// Registry is a set of settings addressed by key.
//
// It is safe for concurrent use. The zero value is ready to use.
type Registry struct {
	mu   sync.RWMutex
	vars map[string]Setting
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{vars: make(map[string]Setting)}
}

// Register adds s. Registering a key twice fails with ErrAlreadyRegistered.
func (r *Registry) Register(s Setting) error {
	if s == nil || strings.TrimSpace(s.Key()) == "" {
		return ErrInvalidKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vars == nil {
		r.vars = make(map[string]Setting)
	}
	if _, ok := r.vars[s.Key()]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, s.Key())
	}
	r.vars[s.Key()] = s
	return nil
}

// Lookup returns the setting registered under key.
func (r *Registry) Lookup(key string) (Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.vars[strings.TrimSpace(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return s, nil
}

// Snapshot returns all settings sorted by key.
func (r *Registry) Snapshot() []Setting {
	r.mu.RLock()
	out := make([]Setting, 0, len(r.vars))
	for _, s := range r.vars {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// SetFromString sets a registered key from its textual form.
func (r *Registry) SetFromString(key, value string) error {
	s, err := r.Lookup(key)
	if err != nil {
		return err
	}
	return s.SetFromString(value)
}

// CommitAll commits every dirty setting, returning all write errors joined.
func (r *Registry) CommitAll() error {
	var errs []error
	for _, s := range r.Snapshot() {
		if err := s.Commit(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// FlushAll flushes every setting. Debounced settings on an asynchronous
// dispatcher queue their commit and report no error; see Debounced.Flush.
func (r *Registry) FlushAll() error {
	var errs []error
	for _, s := range r.Snapshot() {
		if err := s.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Key(), err))
		}
	}
	return errors.Join(errs...)
}
