package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"cut with ellipsis", "hello world", 5, "hello..."},
		{"zero max returns input", "x", 0, "x"},
		{"exact length unchanged", "abcde", 5, "abcde"},
		{"multibyte counted as runes", "héllo wörld", 7, "héllo w..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("a", 50)
	if got := Clip(long, 10); got != strings.Repeat("a", 10) {
		t.Errorf("Clip: got %q", got)
	}
	if got := Clip("abc", 0); got != "abc" {
		t.Errorf("Clip with 0: got %q", got)
	}
}
