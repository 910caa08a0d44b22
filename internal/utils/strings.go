package utils

import (
	"encoding/json"

	ds "github.com/bmatcuk/doublestar/v4"
)

// NormalizeJSON minifies JSON text for stable equality comparisons; when input is empty returns empty string.
func NormalizeJSON(s string) string {
	if len(s) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(b)
}

// MatchAny reports whether name matches at least one doublestar pattern.
// An empty pattern list matches everything. Malformed patterns never match.
func MatchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := ds.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
