package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText collapses every whitespace run (including non-breaking spaces)
// into a single space and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isDecoration matches pictographs, emoji modifiers and joiners that people
// put in display names.
func isDecoration(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoji, pictographs, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	case unicode.Is(unicode.So, r):
		return true
	}
	return false
}

var nameCleaner = transform.Chain(norm.NFC, runes.Remove(runes.Predicate(isDecoration)))

// SanitizeName NFC-normalises a display name, strips emoji and symbols, and
// collapses whitespace.
func SanitizeName(s string) string {
	out, _, err := transform.String(nameCleaner, s)
	if err != nil {
		out = s
	}
	return CleanText(out)
}
