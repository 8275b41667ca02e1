package config

import (
	"fmt"
	"strings"
)

// Flatten converts a nested map into a flat map with dot-separated
// keys. For example, {"cloud": {"enabled": true}} becomes
// {"cloud.enabled": true}. YAML mappings decode with interface keys,
// so both map[string]any and map[any]any nest levels are descended.
func Flatten(m map[any]any) map[string]any {
	out := make(map[string]any)
	flatten("", m, out)
	return out
}

func flatten(prefix string, m map[any]any, out map[string]any) {
	for k, v := range m {
		key := fmt.Sprintf("%v", k)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch child := v.(type) {
		case map[any]any:
			flatten(key, child, out)
		case map[string]any:
			converted := make(map[any]any, len(child))
			for ck, cv := range child {
				converted[ck] = cv
			}
			flatten(key, converted, out)
		default:
			out[key] = v
		}
	}
}

// Unflatten converts a flat map with dot-separated keys back into a
// nested map. For example, {"cloud.enabled": true} becomes
// {"cloud": {"enabled": true}}.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		parts := strings.Split(k, ".")
		current := out
		for i, part := range parts {
			if i == len(parts)-1 {
				current[part] = v
			} else {
				next, ok := current[part]
				if !ok {
					next = make(map[string]any)
					current[part] = next
				}
				m, ok := next.(map[string]any)
				if !ok {
					m = make(map[string]any)
					current[part] = m
				}
				current = m
			}
		}
	}
	return out
}
