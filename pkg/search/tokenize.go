package search

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into word tokens.
// Any rune that is not an ASCII word character, whitespace or a Ukrainian
// Cyrillic letter is treated as a separator.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if isTokenRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, lower)
	return strings.Fields(cleaned)
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= 'а' && r <= 'я':
		return true
	case r == 'ё', r == 'і', r == 'ї', r == 'є', r == 'ґ':
		return true
	case r >= 0x0300 && r <= 0x036F:
		// combining diacritics, e.g. stress marks in titles
		return true
	}
	return false
}

// normalize is the key form used by every model: lowercase and trimmed.
func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
