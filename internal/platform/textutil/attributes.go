package textutil

import "strings"

// Attributes builds a string map from alternating key/value pairs. Keys and values are trimmed
// and pairs with an empty side are skipped; a trailing key without a value is ignored.
func Attributes(pairs ...string) map[string]string {
	var out map[string]string
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(pairs)/2)
		}
		out[key] = value
	}
	return out
}
