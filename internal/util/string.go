package util

import "strings"

// StripCodeFences removes a markdown code fence wrapping a reply, with or
// without a language tag. Models add fences despite being told not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[len("```"):]
	// Drop a short language tag ("json", "text") on the opening fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 && len(strings.TrimSpace(s[:i])) <= 8 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
