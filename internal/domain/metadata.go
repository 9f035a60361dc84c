package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Well-known metadata keys.
const (
	MetaSource = "source"
	MetaPage   = "page"
)

// Metadata holds string or integer attributes of a document.
type Metadata map[string]any

// Clone returns a shallow copy so chunks never share a map with their parent.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Lookup returns the value for key formatted as text.
func (m Metadata) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// MarshalMetadata encodes metadata for storage backends.
func MarshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// UnmarshalMetadata decodes stored metadata, restoring integral numbers as int.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return normalizeMetadata(raw), nil
}

// MetadataFromAny converts a decoded JSON object (for example a Qdrant payload)
// into Metadata, restoring integral numbers as int.
func MetadataFromAny(v any) Metadata {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return normalizeMetadata(raw)
}

func normalizeMetadata(raw map[string]any) Metadata {
	out := make(Metadata, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case json.Number:
			if i, err := t.Int64(); err == nil {
				out[k] = int(i)
			} else {
				out[k] = t.String()
			}
		case float64:
			if t == float64(int(t)) {
				out[k] = int(t)
			} else {
				out[k] = t
			}
		default:
			out[k] = t
		}
	}
	return out
}
