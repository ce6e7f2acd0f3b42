// Package utils provides shared helpers for text, vectors, and logging.
package utils

import "unicode/utf8"

// Truncate returns s cut to maxLen characters with "..." appended when it was cut.
// Lengths are counted in runes so multi-byte text is never split mid-character.
// A maxLen of 0 or less returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// Clip returns s cut to at most maxLen runes without any suffix.
func Clip(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
