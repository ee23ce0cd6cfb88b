package rerank

import "context"

// Passthrough is the final-resort mode (spec §4.9 mode 3): it never fails,
// assigning every candidate score 1.0 in its original order.
type Passthrough struct{}

var _ Mode = Passthrough{}

func (Passthrough) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Scored, error) {
	return passthroughScore(candidates), nil
}
