package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotFound is returned when the mapping file does not exist.
	ErrNotFound = errors.New("mapping file not found")
	// ErrParse is returned when the mapping file is not valid JSON.
	ErrParse = errors.New("mapping file is not valid JSON")
	// ErrFormat is returned when the JSON is not an object of string values.
	ErrFormat = errors.New("mapping file must be a JSON object of strings")
)

// Mapping is a read-only old key -> new key table. The zero value is an
// empty mapping.
type Mapping struct {
	keys map[string]string
}

// New returns a Mapping holding a copy of m.
func New(m map[string]string) Mapping {
	keys := make(map[string]string, len(m))
	for k, v := range m {
		keys[k] = v
	}
	return Mapping{keys: keys}
}

// Load reads a mapping from the JSON file at path.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Mapping{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Mapping{}, fmt.Errorf("reading mapping file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return Mapping{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a mapping from raw JSON.
func Parse(data []byte) (Mapping, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Mapping{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Mapping{}, fmt.Errorf("%w: top-level value is %s", ErrFormat, jsonKind(raw))
	}
	keys := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return Mapping{}, fmt.Errorf("%w: value for %q is %s", ErrFormat, k, jsonKind(v))
		}
		keys[k] = s
	}
	return Mapping{keys: keys}, nil
}

// Lookup returns the new key for old, if any.
func (m Mapping) Lookup(old string) (string, bool) {
	v, ok := m.keys[old]
	return v, ok
}

// Len returns the number of entries.
func (m Mapping) Len() int {
	return len(m.keys)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
