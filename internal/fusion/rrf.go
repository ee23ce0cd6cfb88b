// Package fusion implements Reciprocal Rank Fusion (spec §4.8): combining
// multiple ranked lists of heterogeneous ids into a single descending-score
// ranking. Grounded structurally on the teacher's internal/search/fusion.go
// (RRFFusion: map-accumulate by id, then sort into a slice), but the scoring
// itself follows the exact unweighted formula named by the spec rather than
// the teacher's source-weighted, missing-rank-penalized, normalized variant
// (see DESIGN.md).
package fusion

import "sort"

// DefaultK is the standard RRF smoothing constant.
const DefaultK = 60

// Item is a single entry in a ranked list. ID may be any comparable value —
// lexical and vector sources may use distinct id types (string vs int64);
// RRF must keep them distinct in the accumulator without assuming either
// source's id type.
type Item struct {
	ID any
}

// Scored is a fused result: an id and its aggregated RRF score.
type Scored struct {
	ID    any
	Score float64
}

// RRF fuses lists (each already ranked best-first) using smoothing constant
// k (DefaultK if k <= 0). For each list, each item at zero-based rank r
// contributes 1/(r+1+k) to that id's accumulated score. The result is sorted
// by score descending; ties are broken by first-occurrence order across the
// input lists (stable sort over first-occurrence insertion order).
func RRF(lists [][]Item, k int) []Scored {
	if k <= 0 {
		k = DefaultK
	}

	scores := make(map[any]float64)
	order := make([]any, 0)

	for _, list := range lists {
		for r, item := range list {
			if _, seen := scores[item.ID]; !seen {
				order = append(order, item.ID)
			}
			scores[item.ID] += 1.0 / float64(r+1+k)
		}
	}

	results := make([]Scored, len(order))
	for i, id := range order {
		results[i] = Scored{ID: id, Score: scores[id]}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}
