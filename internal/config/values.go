// internal/config/values.go
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ListValues flattens the effective configuration, derived fields
// included, to dotted keys for display.
func ListValues(cfg *Ailog) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[any]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return Flatten(m), nil
}

// GetValue looks up one dotted key in the effective configuration.
func GetValue(cfg *Ailog, key string) (any, error) {
	values, err := ListValues(cfg)
	if err != nil {
		return nil, err
	}
	val, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("unknown key: %s", key)
	}
	return val, nil
}

// SetValue edits one dotted key in the config file, leaving keys the
// file does not set alone so their defaults keep applying. The value is
// parsed as YAML, so booleans, numbers, and flow lists keep their
// types. Keys are validated against the effective configuration;
// sources.* is open for new source entries.
func SetValue(path, key, value string) error {
	cfg, err := LoadAilog(path)
	if err != nil {
		return err
	}
	values, err := ListValues(cfg)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !strings.HasPrefix(key, "sources.") {
		return fmt.Errorf("unknown key: %s", key)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m map[any]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	flat := Flatten(m)
	flat[key] = parseYAMLValue(value)
	return saveYAML(path, Unflatten(flat))
}

// parseYAMLValue types a raw flag argument; anything that fails to
// parse stays a string.
func parseYAMLValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
