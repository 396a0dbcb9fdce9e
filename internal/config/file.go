package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileLookup reads a flat YAML mapping of FEDASK_* keys to scalar values.
func FileLookup(path string) (LookupFunc, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return parseFileLookup(data)
}

func parseFileLookup(data []byte) (LookupFunc, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, "FEDASK_") {
			return nil, fmt.Errorf("config file key %q: expected FEDASK_ prefix", key)
		}
		switch typed := value.(type) {
		case nil:
			continue
		case map[string]any, []any:
			return nil, fmt.Errorf("config file key %q: expected a scalar value", key)
		case string:
			values[key] = typed
		default:
			values[key] = fmt.Sprint(typed)
		}
	}

	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}, nil
}

// Layered returns the first hit across lookups, in order.
func Layered(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if value, ok := lookup(key); ok {
				return value, true
			}
		}
		return "", false
	}
}
