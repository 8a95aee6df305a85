package contract

import (
	"math"
	"strings"
)

// Field access helpers. Every consumer of a parsed payload goes through
// these rather than ad hoc type assertions, so defaulting, clamping, and
// truncation behave identically across contracts.

// StringField returns the trimmed string at key, truncated to maxLen runes
// (0 means no limit). Truncation counts runes, not bytes, so a multibyte
// character is never split into invalid UTF-8. Missing or non-string values
// yield "".
func StringField(m map[string]any, key string, maxLen int) string {
	if m == nil {
		return ""
	}
	s, ok := m[key].(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if maxLen > 0 {
		if runes := []rune(s); len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return s
}

// BoolField returns the bool at key, defaulting to false. String forms
// "true"/"yes" are accepted because models frequently emit them.
func BoolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "yes"
	}
	return false
}

// IntField returns the int at key, or def when missing or non-numeric.
func IntField(m map[string]any, key string, def int) int {
	if m == nil {
		return def
	}
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return def
}

// FloatField returns the numeric value at key. The second return reports
// whether a numeric value was present; callers drop entries rather than
// defaulting when a required coordinate is missing.
func FloatField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	f, ok := m[key].(float64)
	return f, ok
}

// ClampPercent clamps v into [0,100] and rounds to one decimal.
func ClampPercent(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return math.Round(v*10) / 10
}

// ListField returns the array of objects at key, or nil.
func ListField(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
