package shared

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-isatty"
)

// SanitizeFileName strips a display name down to characters that are safe in
// a file name on every filesystem we deliver from: letters, digits, spaces,
// hyphens and underscores. Everything else is dropped.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	result := strings.TrimSpace(b.String())
	// Limit length to avoid filesystem issues, cutting between runes so
	// multibyte names stay valid UTF-8
	if runes := []rune(result); len(runes) > 200 {
		result = string(runes[:200])
	}
	return result
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDirIfNotExists creates a directory if it doesn't exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// FormatDuration renders milliseconds as m:ss for delivery captions.
func FormatDuration(ms int64) string {
	totalSec := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSec/60, totalSec%60)
}

// TruncateString truncates a string to the specified length, adding ellipsis if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
