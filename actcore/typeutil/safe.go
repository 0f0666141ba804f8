// Package typeutil provides safe type assertion helpers for the plain-map
// payloads that cross the subprocess and logging boundaries. All helpers use
// the comma-ok idiom so malformed payloads degrade to defaults instead of
// panicking.
package typeutil

// SafeMapStringAny safely asserts value to map[string]any.
// Returns the map and true if successful, or nil and false if not.
func SafeMapStringAny(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// SafeMapStringAnyDefault safely asserts value to map[string]any with a
// default fallback.
func SafeMapStringAnyDefault(value any, defaultVal map[string]any) map[string]any {
	if m, ok := SafeMapStringAny(value); ok {
		return m
	}
	return defaultVal
}

// SafeString safely asserts value to string.
// Returns the string and true if successful, or empty string and false if not.
func SafeString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// SafeStringDefault safely asserts value to string with a default fallback.
func SafeStringDefault(value any, defaultVal string) string {
	if s, ok := SafeString(value); ok {
		return s
	}
	return defaultVal
}

// SafeInt safely asserts value to int.
// Also handles float64, which is what JSON unmarshaling produces for numbers.
func SafeInt(value any) (int, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// SafeIntDefault safely asserts value to int with a default fallback.
func SafeIntDefault(value any, defaultVal int) int {
	if i, ok := SafeInt(value); ok {
		return i
	}
	return defaultVal
}

// SafeFloat64 safely asserts value to float64.
// Also handles int types.
func SafeFloat64(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	default:
		return 0, false
	}
}

// SafeFloat64Default safely asserts value to float64 with a default fallback.
func SafeFloat64Default(value any, defaultVal float64) float64 {
	if f, ok := SafeFloat64(value); ok {
		return f
	}
	return defaultVal
}

// SafeBool safely asserts value to bool.
func SafeBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// SafeBoolDefault safely asserts value to bool with a default fallback.
func SafeBoolDefault(value any, defaultVal bool) bool {
	if b, ok := SafeBool(value); ok {
		return b
	}
	return defaultVal
}

// SafeSlice safely asserts value to []any.
func SafeSlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	s, ok := value.([]any)
	return s, ok
}

// SafeStringSlice safely asserts value to []string.
// Also handles []any containing strings, which is what JSON produces.
func SafeStringSlice(value any) ([]string, bool) {
	if value == nil {
		return nil, false
	}

	if s, ok := value.([]string); ok {
		return s, true
	}

	if anySlice, ok := value.([]any); ok {
		result := make([]string, 0, len(anySlice))
		for _, item := range anySlice {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}

	return nil, false
}

// SafeStringSliceDefault safely asserts value to []string with a default
// fallback.
func SafeStringSliceDefault(value any, defaultVal []string) []string {
	if s, ok := SafeStringSlice(value); ok {
		return s
	}
	return defaultVal
}
