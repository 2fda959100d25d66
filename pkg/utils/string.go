// Package utils holds small shared helpers.
package utils

import "strings"

// Truncate shortens s to at most maxLen runes, appending an ellipsis
// when anything was cut. Cutting on runes keeps multibyte characters
// intact.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for line := range strings.Lines(s) {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
