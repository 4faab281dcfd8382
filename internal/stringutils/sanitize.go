package stringutils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeUnicodeString strips null bytes, C0/C1 control characters (except
// tab, newline and carriage return) and invalid UTF-8 sequences.
func SanitizeUnicodeString(s string) string {
	if utf8.ValidString(s) && !hasControlChars(s) {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if isDisallowed(r) {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func isDisallowed(r rune) bool {
	switch {
	case r == 0, r == 127:
		return true
	case r < 32 && r != '\t' && r != '\n' && r != '\r':
		return true
	case r >= 128 && r <= 159:
		return true
	}
	return false
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if isDisallowed(r) {
			return true
		}
	}
	return false
}
