package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims whitespace and caps the length at maxLen bytes,
// backing up to the previous rune boundary so the cut never produces
// invalid UTF-8.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut]
}
