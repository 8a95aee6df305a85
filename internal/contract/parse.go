// Package contract parses and validates the JSON payloads returned by the
// vision model. Parsing never returns an error to callers: any undecodable
// payload yields nil, and downstream consumers degrade to a skip status.
package contract

import (
	"encoding/json"
	"strings"
)

// Parse decodes a model response into a generic JSON object. It strips a
// surrounding markdown code fence (with an optional "json" language tag)
// before decoding. Returns nil on any decode failure.
func Parse(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	candidates := []string{raw}
	if stripped := stripCodeFence(raw); stripped != "" && stripped != raw {
		candidates = append(candidates, stripped)
	}
	if extracted := extractObject(raw); extracted != "" && extracted != raw {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed
		}
	}
	return nil
}

// stripCodeFence removes a leading/trailing ``` fence and an optional json
// language tag. Returns "" when the input is not fenced.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the fence line, including any language tag ("json" or otherwise).
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractObject pulls the outermost {...} span out of surrounding prose.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
