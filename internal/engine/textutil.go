package engine

import "strings"

// TruncateRunes cuts s to at most max runes, appending suffix when cut.
// Safe on multi-byte text.
func TruncateRunes(s string, max int, suffix string) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + suffix
}
