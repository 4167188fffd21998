package matching

import (
	"strings"

	"github.com/Ramsey-B/reed/pkg/normalizers"
)

// Scorer computes tiered similarity between a query and a candidate name
type Scorer struct {
	config Config
}

// NewScorer creates a new Scorer
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score returns a similarity in [0,1]. Tiers are evaluated in order and the first
// applicable one wins: empty, exact, substring, token overlap, edit distance.
func (s *Scorer) Score(query, candidate string) float64 {
	q := normalizers.Normalize(query)
	c := normalizers.Normalize(candidate)

	if q == "" || c == "" {
		return 0.0
	}

	if q == c {
		return 1.0
	}

	if strings.Contains(c, q) || strings.Contains(q, c) {
		return s.config.SubstringScore
	}

	queryTokens := normalizers.Tokenize(q)
	candidateTokens := normalizers.Tokenize(c)
	if len(queryTokens) > 0 && len(candidateTokens) > 0 {
		matched := s.MatchedTokens(queryTokens, candidateTokens)
		if matched == len(queryTokens) {
			return s.config.TokenMatchScore
		}
		if matched > 0 {
			fraction := float64(matched) / float64(len(queryTokens))
			return s.config.PartialTokenBase + fraction*s.config.PartialTokenWeight
		}
	}

	return s.Levenshtein(q, c)
}

// MatchedTokens counts the query tokens that match at least one candidate token
func (s *Scorer) MatchedTokens(queryTokens, candidateTokens []string) int {
	matched := 0
	for _, qt := range queryTokens {
		for _, ct := range candidateTokens {
			if s.tokensMatch(qt, ct) {
				matched++
				break
			}
		}
	}
	return matched
}

func (s *Scorer) tokensMatch(a, b string) bool {
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return true
	}
	minLen := s.config.MinEditTokenLength
	if len([]rune(a)) < minLen || len([]rune(b)) < minLen {
		return false
	}
	return s.Levenshtein(a, b) >= s.config.TokenEditThreshold
}

// Levenshtein converts the edit distance between two strings into a similarity
// score between 0.0 and 1.0
func (s *Scorer) Levenshtein(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0.0
	}
	return 1.0 - float64(LevenshteinDistance(a, b))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings, counted in runes
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Only two rows of the matrix are needed
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
