package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllamaServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{vector}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedReturnsNormalizedVector(t *testing.T) {
	raw := make([]float32, Dimensions)
	raw[0] = 3
	raw[1] = 4 // magnitude 5

	srv := fakeOllamaServer(t, raw)
	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	defer e.Close()

	vec, err := e.Embed(context.Background(), "func Foo() {}")
	require.NoError(t, err)
	require.Len(t, vec, Dimensions)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestEmbedBlankInputReturnsZeroVector(t *testing.T) {
	srv := fakeOllamaServer(t, make([]float32, Dimensions))
	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, Dimensions)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestEmbedModelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	defer e.Close()

	_, err := e.Embed(context.Background(), "some text")
	assert.Error(t, err)
}

type fakeEmbedder struct {
	calls int
	vec   []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, nil
}
func (f *fakeEmbedder) Close() error { return nil }

func TestCachedEmbedderDedupesCalls(t *testing.T) {
	inner := &fakeEmbedder{vec: []float32{1, 0, 0}}
	cached := NewCached(inner, 10)
	defer cached.Close()

	v1, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)
	v2, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderDistinctKeysCallThrough(t *testing.T) {
	inner := &fakeEmbedder{vec: []float32{0, 1, 0}}
	cached := NewCached(inner, 10)
	defer cached.Close()

	_, err := cached.Embed(context.Background(), "text a")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "text b")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
