// Package normalizers provides comparison-only string normalization for catalog matching.
// Stored display values are never rewritten through this package.
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize produces the comparison form of a display string: lowercased, diacritics
// folded, surrounding whitespace trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(foldDiacritics(strings.ToLower(s)))
}

// foldDiacritics strips combining marks, so "Dvořák" becomes "Dvorak"
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Alphanumeric keeps only the letters and digits of the comparison form
func Alphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, Normalize(s))
}

// Tokenize splits a display name into lowercase tokens on runs of whitespace or commas.
// Punctuation inside a token is kept: "J. S. Bach" yields ["j.", "s.", "bach"].
func Tokenize(s string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if tokens == nil {
		return []string{}
	}
	return tokens
}
