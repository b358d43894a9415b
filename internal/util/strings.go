// Package util provides shared string helpers for display code.
package util

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks text that was cut short.
const Ellipsis = "..."

// FitWidth truncates s to maxWidth visual columns, ending with "..." when
// anything was removed. Escape sequences and wide characters are measured the
// way the terminal draws them. A maxWidth of zero or less leaves s unchanged.
func FitWidth(s string, maxWidth int) string {
	if maxWidth <= 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return Ellipsis[:maxWidth]
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// ShortenPath keeps the trailing elements of path that fit in maxLen runes,
// replacing the dropped leading part with "...". The base name is always
// kept, even when it alone is longer than maxLen.
func ShortenPath(path string, maxLen int) string {
	if len([]rune(path)) <= maxLen {
		return path
	}

	sep := string(filepath.Separator)
	parts := strings.Split(filepath.Clean(path), sep)
	kept := parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		candidate := parts[i] + sep + kept
		if len([]rune(Ellipsis+sep+candidate)) > maxLen {
			break
		}
		kept = candidate
	}
	return Ellipsis + sep + kept
}
