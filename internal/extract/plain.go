package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// extractPlain returns content as string, replacing invalid UTF-8 sequences.
func extractPlain(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}

// ParseSubtitles reduces WebVTT or SRT captions to their spoken text. Cue
// numbers, timing lines, markup lines and the WEBVTT header are dropped and the
// remaining lines are joined with spaces.
func ParseSubtitles(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" ||
			strings.HasPrefix(line, "<") ||
			strings.Contains(line, "-->") ||
			strings.HasPrefix(line, "WEBVTT") ||
			isDigits(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
