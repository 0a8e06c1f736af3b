package starlark

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadData reads template arguments from a YAML file. The document must
// be a mapping; an empty file yields no arguments.
func LoadData(path string) (map[string]any, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := ParseData(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// ParseData decodes a YAML mapping of template arguments.
func ParseData(src []byte) (map[string]any, error) {
	var data map[string]any
	if err := yaml.Unmarshal(src, &data); err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// SetValue parses an assignment of the form key=value into data. The
// value is read as a YAML scalar, so numbers and booleans keep their type;
// anything else is taken as a string.
func SetValue(data map[string]any, assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid assignment %q: want key=value", assignment)
	}

	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		data[key] = raw
		return nil
	}
	switch v.(type) {
	case int, float64, bool, string:
		data[key] = v
	default:
		data[key] = raw
	}
	return nil
}
