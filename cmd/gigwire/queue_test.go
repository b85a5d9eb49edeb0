package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short unchanged", "on my way", 40, "on my way"},
		{"exact length unchanged", strings.Repeat("a", 40), 40, strings.Repeat("a", 40)},
		{"long cut with ellipsis", strings.Repeat("a", 41), 40, strings.Repeat("a", 37) + "..."},
		{"multibyte counted as runes", strings.Repeat("é", 41), 40, strings.Repeat("é", 37) + "..."},
		{"emoji not split", strings.Repeat("🔧", 41), 40, strings.Repeat("🔧", 37) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}
