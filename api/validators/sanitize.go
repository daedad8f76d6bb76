package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims input, drops invalid UTF-8 and caps it at maxLen
// runes. Meant for search terms, where a silent cut is harmless.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return strings.TrimSpace(string([]rune(trimmed)[:maxLen]))
	}
	return trimmed
}

// CleanText trims free text such as contact messages and removes control
// characters other than newlines and tabs. It never truncates; length limits
// belong to the service so overlong input is rejected.
func CleanText(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, strings.ToValidUTF8(input, ""))
	return strings.TrimSpace(cleaned)
}
