package matching

// tolerance absorbs float error so that 1.0 against 0.9 counts as a 0.1 gap
const tolerance = 1e-9

// Policy turns ranked candidates into a match decision
type Policy struct {
	MinScore       float64
	AutoMatchScore float64
	MinGap         float64
}

// NewPolicy builds a Policy from the matching configuration
func NewPolicy(config Config) Policy {
	return Policy{
		MinScore:       config.MinScore,
		AutoMatchScore: config.AutoMatchScore,
		MinGap:         config.MinGap,
	}
}

// Decision is the outcome of applying a Policy to ranked candidates
type Decision[T any] struct {
	Match     *Candidate[T]
	Ambiguous bool
	Options   []Candidate[T]
}

// Matched reports whether the decision selected a candidate
func (d Decision[T]) Matched() bool {
	return d.Match != nil
}

// Decide applies the policy to options sorted by score descending:
//   - no qualifying option: no match
//   - exactly one option at or above MinScore: that option
//   - top option at or above AutoMatchScore and at least MinGap ahead of the runner-up: the top option
//   - anything else: ambiguous, deferred to a human
func Decide[T any](policy Policy, options []Candidate[T]) Decision[T] {
	qualified := make([]Candidate[T], 0, len(options))
	for _, option := range options {
		if option.Score+tolerance >= policy.MinScore {
			qualified = append(qualified, option)
		}
	}

	decision := Decision[T]{Options: qualified}
	switch len(qualified) {
	case 0:
		return decision
	case 1:
		decision.Match = &qualified[0]
		return decision
	}

	top, second := qualified[0], qualified[1]
	if top.Score+tolerance >= policy.AutoMatchScore && top.Score-second.Score+tolerance >= policy.MinGap {
		decision.Match = &qualified[0]
		return decision
	}

	decision.Ambiguous = true
	return decision
}
