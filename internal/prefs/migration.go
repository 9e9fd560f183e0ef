package prefs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
)

// decodeFile parses a prefs file. Version 2 files hold typed entries; older
// files are a flat {"key": value} object and are converted on load.
func decodeFile(data []byte) (table, error) {
	var probe struct {
		Version int             `json:"version"`
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if probe.Version >= fileVersion && probe.Entries != nil {
		var f fileFormat
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return normalize(table(f.Entries)), nil
	}

	t, err := migrateFlat(data)
	if err != nil {
		return nil, err
	}
	return normalize(t), nil
}

// migrateFlat converts a version 1 flat object into typed entries.
// Integral numbers become ints, other numbers floats, booleans 0/1 ints.
// Nested values are dropped.
func migrateFlat(data []byte) (table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	slog.Info("prefs: migrating flat prefs file", "keys", len(raw))
	t := make(table, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case json.Number:
			if i, err := val.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
				t[k] = Entry{Kind: KindInt, Int: int(i)}
				continue
			}
			f, err := val.Float64()
			if err != nil {
				slog.Warn("prefs: dropping unparsable number", "key", k, "value", val.String())
				continue
			}
			t[k] = Entry{Kind: KindFloat, Float: f}
		case bool:
			i := 0
			if val {
				i = 1
			}
			t[k] = Entry{Kind: KindInt, Int: i}
		case string:
			t[k] = Entry{Kind: KindString, String: val}
		default:
			slog.Warn("prefs: dropping non-primitive value", "key", k)
		}
	}
	return t, nil
}

// normalize trims keys and drops entries that cannot be read back:
// blank keys and unknown kinds. On a collision after trimming the
// already-trimmed key wins.
func normalize(t table) table {
	out := make(table, len(t))
	for k, e := range t {
		key := strings.TrimSpace(k)
		if key == "" {
			slog.Warn("prefs: dropping entry with blank key")
			continue
		}
		if !e.Kind.Valid() {
			slog.Warn("prefs: dropping entry with unknown kind", "key", key, "kind", e.Kind)
			continue
		}
		if key != k {
			if _, exists := t[key]; exists {
				continue
			}
			slog.Warn("prefs: trimmed key", "from", k, "to", key)
		}
		out[key] = e
	}
	return out
}
