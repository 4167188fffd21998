package normalizers

import "strings"

// FormatPersonName rewrites "First Middle Last" into the catalog's "Last, First Middle"
// form. Names that already contain a comma, or consist of a single word, are only
// whitespace-collapsed.
func FormatPersonName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	collapsed := strings.Join(fields, " ")
	if strings.Contains(collapsed, ",") || len(fields) == 1 {
		return collapsed
	}
	last := fields[len(fields)-1]
	return last + ", " + strings.Join(fields[:len(fields)-1], " ")
}

// LastName returns the family-name part of a display name: the text before the first
// comma when present, otherwise the last word.
func LastName(name string) string {
	if before, _, found := strings.Cut(name, ","); found {
		return strings.TrimSpace(before)
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// GivenNames returns the given-name words of a display name: the words after the first
// comma when present, otherwise every word but the last.
func GivenNames(name string) []string {
	if _, after, found := strings.Cut(name, ","); found {
		return strings.Fields(after)
	}
	fields := strings.Fields(name)
	if len(fields) <= 1 {
		return []string{}
	}
	return fields[:len(fields)-1]
}
