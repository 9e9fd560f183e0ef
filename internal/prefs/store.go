// Package prefs is the flat key -> primitive storage settings are persisted
// to. It mirrors a player-preferences style API: typed getters with a
// caller-supplied default and typed setters.
package prefs

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNonFinite is returned by SetFloat for NaN and infinite values, which
// cannot be persisted as JSON.
var ErrNonFinite = errors.New("prefs: non-finite float")

func checkFloat(key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s = %v", ErrNonFinite, key, v)
	}
	return nil
}

// Store is the backing store for settings parameters.
//
// Getters return def when the key is absent or holds a value of another kind.
// Implementations are safe for concurrent use, but callers should still route
// writes through the commit-capable context.
type Store interface {
	GetInt(key string, def int) int
	GetFloat(key string, def float64) float64
	GetString(key string, def string) string

	SetInt(key string, v int) error
	SetFloat(key string, v float64) error
	SetString(key string, v string) error

	// HasKey reports whether a value of any kind is stored for key.
	HasKey(key string) bool
	// DeleteKey removes key. Deleting a missing key is not an error.
	DeleteKey(key string) error
	// Keys returns the stored keys in lexical order.
	Keys() []string

	// Path returns where the store persists to.
	Path() string
	// Flush forces an immediate write of any pending state.
	Flush() error
}

// Kind is the primitive type of a stored value.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindFloat, KindString:
		return true
	}
	return false
}

// Entry is one stored value. Only the field matching Kind is meaningful.
type Entry struct {
	Kind   Kind    `json:"kind"`
	Int    int     `json:"int,omitempty"`
	Float  float64 `json:"float,omitempty"`
	String string  `json:"string,omitempty"`
}

// table is the in-memory representation shared by MemStore and JSONStore.
// It is not synchronized.
type table map[string]Entry

func (t table) getInt(key string, def int) int {
	if e, ok := t[key]; ok && e.Kind == KindInt {
		return e.Int
	}
	return def
}

func (t table) getFloat(key string, def float64) float64 {
	if e, ok := t[key]; ok && e.Kind == KindFloat {
		return e.Float
	}
	return def
}

func (t table) getString(key string, def string) string {
	if e, ok := t[key]; ok && e.Kind == KindString {
		return e.String
	}
	return def
}

func (t table) keys() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t table) clone() table {
	cp := make(table, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return cp
}
