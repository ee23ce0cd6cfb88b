package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMode struct {
	result []Scored
	err    error
	calls  int
}

func (f *fakeMode) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Scored, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sampleCandidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = Candidate{ID: int64(i + 1), Content: "content"}
	}
	return out
}

// S6: |candidates| <= top_n skips model invocation entirely.
func TestRerankBypassesModelWhenCandidatesFitTopN(t *testing.T) {
	mode := &fakeMode{}
	r := New(mode)

	candidates := sampleCandidates(3)
	results := r.Rerank(context.Background(), "query", candidates, 5)

	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, 1.0, res.Score)
	}
	assert.Equal(t, 0, mode.calls, "bypass rule must skip model invocation")
}

func TestRerankUsesFirstSucceedingMode(t *testing.T) {
	failing := &fakeMode{err: errors.New("unavailable")}
	succeeding := &fakeMode{result: []Scored{
		{ID: 1, Score: 0.2},
		{ID: 2, Score: 0.9},
	}}
	r := New(failing, succeeding)

	candidates := sampleCandidates(2)
	results := r.Rerank(context.Background(), "query", candidates, 1)

	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].ID)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, succeeding.calls)
}

func TestRerankFallsBackToPassthroughWhenAllModesFail(t *testing.T) {
	failing1 := &fakeMode{err: errors.New("down")}
	failing2 := &fakeMode{err: errors.New("also down")}
	r := New(failing1, failing2)

	candidates := sampleCandidates(3)
	results := r.Rerank(context.Background(), "query", candidates, 2)

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].ID)
	assert.Equal(t, int64(2), results[1].ID)
}

func TestPassthroughModeNeverFails(t *testing.T) {
	p := Passthrough{}
	candidates := sampleCandidates(4)

	results, err := p.Rerank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, 1.0, r.Score)
	}
}
