// Package rerank implements the Reranker (spec §4.9): a cross-encoder over
// (query, candidate) pairs, tried across modes that fall back silently on
// failure. Grounded on the teacher's internal/search/reranker.go (Reranker
// interface, NoOpReranker as the passthrough precedent) and mlx_reranker.go
// (remote HTTP mode shape).
package rerank

import (
	"context"
	"sort"
)

// Candidate is a single item offered to the reranker.
type Candidate struct {
	ID      int64
	Content string
}

// Scored is a reranked result.
type Scored struct {
	ID    int64
	Score float64
}

// Mode scores a batch of candidates against a query. A Mode that cannot
// serve the request (credential absent, model unavailable, runtime error)
// returns an error so Reranker can fall through to the next mode.
type Mode interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Scored, error)
}

// Reranker tries its modes in order, falling back silently to the next on
// error, per spec §4.9's failure semantics: the caller never observes a
// reranker error.
type Reranker struct {
	modes []Mode
}

// New builds a Reranker trying modes in the given order. A Passthrough mode
// should always be last so the chain never fails outright.
func New(modes ...Mode) *Reranker {
	return &Reranker{modes: modes}
}

// Rerank scores candidates against query and returns the top_n by score
// descending. If len(candidates) <= topN, the bypass rule applies: no mode
// is invoked and candidates are returned as-is with score 1.0, in their
// original order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) []Scored {
	if len(candidates) <= topN {
		return passthroughScore(candidates)
	}

	for _, mode := range r.modes {
		scored, err := mode.Rerank(ctx, query, candidates)
		if err != nil {
			continue
		}
		return truncateSorted(scored, topN)
	}

	// No mode succeeded; fall back to the passthrough ordering, still
	// truncated to topN.
	return truncateSorted(passthroughScore(candidates), topN)
}

func passthroughScore(candidates []Candidate) []Scored {
	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = Scored{ID: c.ID, Score: 1.0}
	}
	return out
}

func truncateSorted(scored []Scored, topN int) []Scored {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topN > 0 && topN < len(scored) {
		scored = scored[:topN]
	}
	return scored
}
