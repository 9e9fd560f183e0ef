// Package models holds the wire types shared by the controller, the event bus
// and the HTTP API.
package models

import "time"

// Change event names.
const (
	EventChanged   = "changed"
	EventCommitted = "committed"
)

// Setting is the externally visible view of one registered parameter.
type Setting struct {
	Key        string `json:"key"`
	Kind       string `json:"kind"`
	Value      any    `json:"value"`
	Default    any    `json:"default"`
	Strategy   string `json:"strategy"`
	Dirty      bool   `json:"dirty"`
	DebounceMS int64  `json:"debounce_ms,omitempty"`
	Pending    bool   `json:"pending,omitempty"`
}

// Change is published on the event bus whenever a parameter's in-memory value
// changes or a value is written to the backing store.
type Change struct {
	Event string    `json:"event"`
	Key   string    `json:"key"`
	Kind  string    `json:"kind"`
	Value any       `json:"value"`
	At    time.Time `json:"at"`
}

// SettingUpdate is the request body for PUT /api/settings/{key}.
// Value may be a JSON scalar or a string in the setting's textual form.
type SettingUpdate struct {
	Value any `json:"value"`
}
