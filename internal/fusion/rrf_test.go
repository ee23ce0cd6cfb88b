package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(ids ...any) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id}
	}
	return out
}

// S5 from the spec: L1=[A,B,C], L2=[B,C,D], k=60 -> order [B,C,A,D].
func TestRRFMatchesSpecScenarioS5(t *testing.T) {
	l1 := items("A", "B", "C")
	l2 := items("B", "C", "D")

	results := RRF([][]Item{l1, l2}, 60)
	require.Len(t, results, 4)

	ids := make([]any, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []any{"B", "C", "A", "D"}, ids)

	byID := make(map[any]float64, len(results))
	for _, r := range results {
		byID[r.ID] = r.Score
	}
	assert.InDelta(t, 1.0/61+1.0/62, byID["B"], 1e-12)
	assert.InDelta(t, 1.0/62+1.0/63, byID["C"], 1e-12)
	assert.InDelta(t, 1.0/61, byID["A"], 1e-12)
	assert.InDelta(t, 1.0/63, byID["D"], 1e-12)
}

func TestRRFSingleListPreservesOrder(t *testing.T) {
	l := items("X", "Y", "Z")
	results := RRF([][]Item{l}, 60)

	ids := make([]any, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []any{"X", "Y", "Z"}, ids)
}

func TestRRFOrderIndependentOfListPermutation(t *testing.T) {
	l1 := items("A", "B", "C")
	l2 := items("B", "C", "D")

	forward := RRF([][]Item{l1, l2}, 60)
	reversed := RRF([][]Item{l2, l1}, 60)

	forwardScores := make(map[any]float64, len(forward))
	for _, r := range forward {
		forwardScores[r.ID] = r.Score
	}
	for _, r := range reversed {
		assert.InDelta(t, forwardScores[r.ID], r.Score, 1e-12)
	}
}

func TestRRFHandlesHeterogeneousIDTypes(t *testing.T) {
	lexical := items("a.go:10", "b.go:20")
	vector := items(int64(42), int64(7))

	results := RRF([][]Item{lexical, vector}, 60)
	require.Len(t, results, 4)

	var sawString, sawInt bool
	for _, r := range results {
		switch r.ID.(type) {
		case string:
			sawString = true
		case int64:
			sawInt = true
		}
	}
	assert.True(t, sawString)
	assert.True(t, sawInt)
}

func TestRRFEmptyListsYieldsEmptyResult(t *testing.T) {
	results := RRF(nil, 60)
	assert.Empty(t, results)
}

func TestRRFDefaultsKWhenNonPositive(t *testing.T) {
	l := items("A")
	results := RRF([][]Item{l}, 0)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0/(1+DefaultK), results[0].Score, 1e-12)
}
