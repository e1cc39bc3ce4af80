// Package template provides {{path}} interpolation against an execution context.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Lookup resolves a dot-path ("student.phone") against nested maps. The second
// return is false when any segment of the path is absent.
func Lookup(path string, data map[string]any) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil, false
		}

		current = value
	}

	return current, true
}

// RenderString substitutes every {{path}} token in s with the context value at
// that dot-path. Unresolved tokens are left literally in place.
func RenderString(s string, data map[string]any) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]

		value, ok := Lookup(path, data)
		if !ok {
			return token
		}

		return stringify(value)
	})
}

// Resolve renders a string that may be a single whole token. When s is exactly
// one {{path}} token the raw context value is returned (preserving its type);
// otherwise it behaves like RenderString.
func Resolve(s string, data map[string]any) any {
	trimmed := strings.TrimSpace(s)

	match := tokenPattern.FindStringSubmatch(trimmed)
	if match != nil && match[0] == trimmed {
		if value, ok := Lookup(match[1], data); ok {
			return value
		}

		return s
	}

	return RenderString(s, data)
}

// Render walks an arbitrary JSON-shaped value and interpolates every string it
// contains, returning the same shape.
func Render(input any, data map[string]any) any {
	switch v := input.(type) {
	case string:
		return RenderString(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = Render(value, data)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = Render(value, data)
		}

		return out
	default:
		return input
	}
}

// RenderConfig interpolates every string value of an action configuration.
func RenderConfig(config map[string]any, data map[string]any) map[string]any {
	rendered, _ := Render(config, data).(map[string]any)
	if rendered == nil {
		return map[string]any{}
	}

	return rendered
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Trim the ".0" JSON numbers pick up on round-trip.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
