package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracle-rag/oracle/internal/chunk"
	"github.com/oracle-rag/oracle/internal/embed"
	"github.com/oracle-rag/oracle/internal/lexical"
	"github.com/oracle-rag/oracle/internal/store"
	"github.com/oracle-rag/oracle/internal/vector"
)

// fixedEmbedder returns a preset embedding per query text (or fallback for
// any other text), so tests can pin exactly which chunk the vector index
// will rank first.
type fixedEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f fixedEmbedder) Close() error { return nil }

func unitVector(hot int) []float32 {
	v := make([]float32, vector.Dimensions)
	v[hot] = 1
	return v
}

func setupRetriever(t *testing.T, chunks []chunk.Chunk, embeddings map[int64][]float32, queryVectors map[string][]float32) (*Retriever, []chunk.Chunk) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InsertBatch(ctx, chunks))
	stored, err := s.ListAll(ctx)
	require.NoError(t, err)

	lex, err := lexical.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = lex.Close() })
	require.NoError(t, lex.Build(ctx, stored))

	vec := vector.New()
	for _, c := range stored {
		if e, ok := embeddings[c.ID]; ok {
			require.NoError(t, vec.Add(c.ID, e))
		}
	}

	embedder := fixedEmbedder{vectors: queryVectors, fallback: unitVector(1)}
	return New(s, lex, vec, embedder), stored
}

func TestHybridSearchReturnsEmptyForBlankQuery(t *testing.T) {
	r, _ := setupRetriever(t, nil, nil, nil)
	results, err := r.HybridSearch(context.Background(), "   ", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearchFindsLexicalMatch(t *testing.T) {
	chunks := []chunk.Chunk{
		{FilePath: "a.py", SymbolName: "foo", SymbolType: chunk.SymbolFunction, Content: "def foo():\n    return 1\n", ContentHash: "h1", StartLine: 1, EndLine: 2, Language: "python"},
	}
	r, stored := setupRetriever(t, chunks, map[int64][]float32{1: unitVector(0)}, nil)

	results, err := r.HybridSearch(context.Background(), "foo", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored[0].ID, results[0].ID)
	assert.Equal(t, "foo", results[0].SymbolName)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestHybridSearchRanksHybridMatchAboveSingleSourceMatch(t *testing.T) {
	chunks := []chunk.Chunk{
		{FilePath: "a.ts", SymbolName: "authenticate", SymbolType: chunk.SymbolFunction, Content: "export function authenticate() { return true }", ContentHash: "h1", StartLine: 1, EndLine: 1, Language: "typescript"},
		{FilePath: "b.ts", SymbolName: "authenticate", SymbolType: chunk.SymbolFunction, Content: "export function authenticate() { return false }", ContentHash: "h2", StartLine: 2, EndLine: 2, Language: "typescript"},
	}
	// Only the first chunk's embedding matches the query embedding, so it
	// appears in both the lexical and the vector top-k; the second only
	// appears in the lexical list.
	embeddings := map[int64][]float32{
		1: unitVector(0),
		2: unitVector(2),
	}
	r, stored := setupRetriever(t, chunks, embeddings, map[string][]float32{"authenticate": unitVector(0)})

	opts := DefaultOptions()
	opts.FusionLimit = 2
	// Restrict the vector side to its single best match so the first chunk
	// appears in both ranked lists while the second appears in the lexical
	// list only, regardless of how bleve breaks a near-tied BM25 score.
	opts.VectorLimit = 1
	results, err := r.HybridSearch(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, stored[0].ID, results[0].ID)
	assert.Equal(t, stored[1].ID, results[1].ID)
}

func TestHybridSearchDropsIDsMissingFromStore(t *testing.T) {
	chunks := []chunk.Chunk{
		{FilePath: "a.py", SymbolName: "foo", SymbolType: chunk.SymbolFunction, Content: "def foo():\n    return 1\n", ContentHash: "h1", StartLine: 1, EndLine: 2, Language: "python"},
	}
	r, stored := setupRetriever(t, chunks, map[int64][]float32{1: unitVector(0)}, nil)

	// Simulate a vector-index entry for a chunk id no longer present in the
	// Chunk Store (possible only under concurrent modification, per spec
	// §4.11 step 7).
	require.NoError(t, r.vec.Add(stored[0].ID+999, unitVector(5)))

	results, err := r.HybridSearch(context.Background(), "foo", DefaultOptions())
	require.NoError(t, err)
	for _, res := range results {
		assert.NotEqual(t, stored[0].ID+999, res.ID)
	}
}
