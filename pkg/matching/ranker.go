package matching

import "sort"

// Candidate pairs a catalog item with its similarity to a query
type Candidate[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

// Rank scores every item against the query, drops items below minScore, sorts by score
// descending and keeps at most maxResults. Equal scores keep their input order.
// A maxResults of zero or less keeps every qualifying item.
func Rank[T any](scorer *Scorer, query string, items []T, name func(T) string, minScore float64, maxResults int) []Candidate[T] {
	ranked := make([]Candidate[T], 0, len(items))
	for _, item := range items {
		score := scorer.Score(query, name(item))
		if score < minScore {
			continue
		}
		ranked = append(ranked, Candidate[T]{Item: item, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}
