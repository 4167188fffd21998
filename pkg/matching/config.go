// Package matching scores free-text references against catalog names and decides
// whether a reference identifies an existing entry.
package matching

// Config contains the scoring tiers and decision thresholds
type Config struct {
	MinScore            float64 // Minimum score for a candidate to be considered (default: 0.6)
	AutoMatchScore      float64 // Top score required for an automatic match among several options (default: 0.9)
	MinGap              float64 // Required lead of the top option over the runner-up (default: 0.1)
	MaxResults          int     // Maximum ranked candidates kept (default: 10)
	SubstringScore      float64 // Score when one string contains the other (default: 0.95)
	TokenMatchScore     float64 // Score when every query token matches (default: 0.9)
	PartialTokenBase    float64 // Base score when only some query tokens match (default: 0.7)
	PartialTokenWeight  float64 // Weight of the matched fraction on top of the base (default: 0.15)
	TokenEditThreshold  float64 // Edit similarity for two tokens to match (default: 0.8)
	MinEditTokenLength  int     // Tokens shorter than this only match by prefix (default: 3)
	CandidateSampleSize int     // Size of the bounded catalog sample added to prefix candidates (default: 200)
}

// DefaultConfig returns default matching configuration
func DefaultConfig() Config {
	return Config{
		MinScore:            0.6,
		AutoMatchScore:      0.9,
		MinGap:              0.1,
		MaxResults:          10,
		SubstringScore:      0.95,
		TokenMatchScore:     0.9,
		PartialTokenBase:    0.7,
		PartialTokenWeight:  0.15,
		TokenEditThreshold:  0.8,
		MinEditTokenLength:  3,
		CandidateSampleSize: 200,
	}
}
