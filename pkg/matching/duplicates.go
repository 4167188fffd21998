package matching

import (
	"strings"

	"github.com/Ramsey-B/reed/pkg/normalizers"
)

// duplicateSimilarity is the edit similarity above which two names are reported as duplicates
const duplicateSimilarity = 0.8

// IsDuplicate reports whether two catalog names probably denote the same person:
// one contains the other once reduced to letters and digits, or they share a last name
// and first initial, or their edit similarity is at least 0.8.
func IsDuplicate(a, b string) bool {
	na := normalizers.Alphanumeric(a)
	nb := normalizers.Alphanumeric(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	lastA := normalizers.Alphanumeric(normalizers.LastName(a))
	lastB := normalizers.Alphanumeric(normalizers.LastName(b))
	if lastA != "" && lastA == lastB {
		firstA := Initials(firstWord(normalizers.GivenNames(a)))
		firstB := Initials(firstWord(normalizers.GivenNames(b)))
		if firstA == "" || firstB == "" {
			return true
		}
		if []rune(firstA)[0] == []rune(firstB)[0] {
			return true
		}
	}

	maxLen := max(len([]rune(na)), len([]rune(nb)))
	similarity := 1.0 - float64(LevenshteinDistance(na, nb))/float64(maxLen)
	return similarity >= duplicateSimilarity
}

func firstWord(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	return words[:1]
}

// FindDuplicates groups items whose names are pairwise duplicates of the group's first
// member. Each item lands in at most one group and only groups of two or more are
// returned. The pass compares every pair, so it is quadratic in len(items).
func FindDuplicates[T any](items []T, name func(T) string) [][]T {
	assigned := make([]bool, len(items))
	groups := [][]T{}

	for i := range items {
		if assigned[i] {
			continue
		}
		group := []T{items[i]}
		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			if IsDuplicate(name(items[i]), name(items[j])) {
				group = append(group, items[j])
				assigned[j] = true
			}
		}
		if len(group) > 1 {
			assigned[i] = true
			groups = append(groups, group)
		}
	}
	return groups
}
