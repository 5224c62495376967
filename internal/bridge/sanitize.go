package bridge

import (
	"strings"
	"unicode"
)

// sanitizeCode trims surrounding whitespace and strips control characters from
// a submitted code. Submitted values are free-form strings and must never
// reach a source, or be echoed back, raw.
func sanitizeCode(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}
