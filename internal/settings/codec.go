package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/micro-nova/amplipi-prefs/internal/prefs"
)

// Kind names the logical type of a parameter.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// Codec reads and writes values of type V through a prefs.Store.
//
// Parse is optional; without it the parameter cannot be set from text
// (Registry.SetFromString, the HTTP API).
type Codec[V any] struct {
	Kind  Kind
	Read  func(s prefs.Store, key string, def V) V
	Write func(s prefs.Store, key string, v V) error
	Parse func(s string) (V, error)
}

// BoolCodec stores booleans as int 1 (true) or 0 (false).
var BoolCodec = Codec[bool]{
	Kind: KindBool,
	Read: func(s prefs.Store, key string, def bool) bool {
		return s.GetInt(key, boolToInt(def)) == 1
	},
	Write: func(s prefs.Store, key string, v bool) error {
		return s.SetInt(key, boolToInt(v))
	},
	Parse: parseBool,
}

// IntCodec uses the store's native int accessors.
var IntCodec = Codec[int]{
	Kind:  KindInt,
	Read:  func(s prefs.Store, key string, def int) int { return s.GetInt(key, def) },
	Write: func(s prefs.Store, key string, v int) error { return s.SetInt(key, v) },
	Parse: func(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) },
}

// FloatCodec uses the store's native float accessors.
var FloatCodec = Codec[float64]{
	Kind:  KindFloat,
	Read:  func(s prefs.Store, key string, def float64) float64 { return s.GetFloat(key, def) },
	Write: func(s prefs.Store, key string, v float64) error { return s.SetFloat(key, v) },
	Parse: parseFloat,
}

// StringCodec uses the store's native string accessors.
var StringCodec = Codec[string]{
	Kind:  KindString,
	Read:  func(s prefs.Store, key string, def string) string { return s.GetString(key, def) },
	Write: func(s prefs.Store, key string, v string) error { return s.SetString(key, v) },
	Parse: func(s string) (string, error) { return s, nil },
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseBool accepts true/false, t/f, 1/0, yes/no, y/n, on/off (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on":
		return true, nil
	case "false", "f", "0", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("expects bool (true/false, 1/0, yes/no, on/off), got %q", s)
}

// parseFloat rejects NaN and infinities; stores cannot persist them.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expects a finite number, got %q", s)
	}
	return v, nil
}
