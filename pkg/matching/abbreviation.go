package matching

import (
	"strings"
	"unicode"

	"github.com/Ramsey-B/reed/pkg/normalizers"
)

// IsAbbreviatedName reports whether a name has the "Last, F. M." shape: a comma and at
// least one given-name word carrying a period.
func IsAbbreviatedName(name string) bool {
	if !strings.Contains(name, ",") {
		return false
	}
	for _, given := range normalizers.GivenNames(name) {
		if strings.Contains(given, ".") {
			return true
		}
	}
	return false
}

// Initials returns the lowercase initial of each given-name part. "J.S." and "J. S."
// both yield "js", and hyphenated names contribute one initial per part.
func Initials(givenNames []string) string {
	var b strings.Builder
	for _, given := range givenNames {
		parts := strings.FieldsFunc(given, func(r rune) bool {
			return r == '.' || r == '-'
		})
		for _, part := range parts {
			for _, r := range normalizers.Normalize(part) {
				if unicode.IsLetter(r) {
					b.WriteRune(r)
					break
				}
			}
		}
	}
	return b.String()
}

// ResolveAbbreviation matches an abbreviated "Last, F. M." query against candidates
// with the same last name by comparing initials letter by letter. The first candidate
// with an identical initial sequence wins.
func ResolveAbbreviation[T any](query string, candidates []T, name func(T) string) (T, bool) {
	var zero T
	if !IsAbbreviatedName(query) {
		return zero, false
	}

	lastName := normalizers.Normalize(normalizers.LastName(query))
	initials := Initials(normalizers.GivenNames(query))
	if lastName == "" || initials == "" {
		return zero, false
	}

	for _, candidate := range candidates {
		candidateName := name(candidate)
		if normalizers.Normalize(normalizers.LastName(candidateName)) != lastName {
			continue
		}
		if Initials(normalizers.GivenNames(candidateName)) == initials {
			return candidate, true
		}
	}
	return zero, false
}
