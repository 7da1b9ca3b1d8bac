// Package metadata builds ordered frontmatter maps and serializes them as
// a YAML-like text block.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// quoteChars are the characters that force a string value to be single-quoted.
const quoteChars = ":#[]{}|>*&!%@`,\n"

// Map is an insertion-ordered string-keyed map. Values may be scalars
// (string, bool, nil, integers, floats), nested *Map values or sequences
// ([]string, []any).
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores v under key. Re-setting an existing key keeps its original position.
func (m *Map) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Serialize renders m as YAML-like text, one key per line, nested levels
// indented by two spaces.
func Serialize(m *Map) string {
	var b strings.Builder
	write(&b, m, 0)
	return b.String()
}

// Block wraps the serialized map in "---" delimiters followed by a blank line.
// An empty map yields an empty string.
func Block(m *Map) string {
	if m.Len() == 0 {
		return ""
	}
	return "---\n" + Serialize(m) + "---\n\n"
}

func write(b *strings.Builder, m *Map, indent int) {
	if m == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	for _, key := range m.keys {
		switch v := m.values[key].(type) {
		case *Map:
			b.WriteString(prefix + key + ":\n")
			write(b, v, indent+1)
		case []string:
			b.WriteString(prefix + key + ":\n")
			for _, item := range v {
				b.WriteString(prefix + "  - " + Scalar(item) + "\n")
			}
		case []any:
			b.WriteString(prefix + key + ":\n")
			for _, item := range v {
				b.WriteString(prefix + "  - " + Scalar(item) + "\n")
			}
		default:
			b.WriteString(prefix + key + ": " + Scalar(v) + "\n")
		}
	}
}

// Scalar renders a single value.
func Scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return quote(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, quoteChars) {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return s
}
