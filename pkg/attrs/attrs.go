// Package attrs reads slog-style alternating key/value argument lists.
package attrs

// ExtractString returns the string value paired with key in kv, laid out as
// [key1, value1, key2, value2, ...]. When a key repeats the last pair wins.
// Non-string values and a trailing key without value are ignored.
func ExtractString(kv []any, key string) string {
	var out string
	for i := 0; i+1 < len(kv); i += 2 {
		if k, _ := kv[i].(string); k != key {
			continue
		}
		if v, ok := kv[i+1].(string); ok {
			out = v
		}
	}
	return out
}
