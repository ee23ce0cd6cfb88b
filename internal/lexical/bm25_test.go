package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracle-rag/oracle/internal/chunk"
)

func sampleChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{ID: 1, FilePath: "users.go", SymbolName: "getUserById", Content: "func getUserById(id int) *User { return nil }", StartLine: 10, EndLine: 12, Language: "go"},
		{ID: 2, FilePath: "orders.go", SymbolName: "CreateOrder", Content: "func CreateOrder(items []Item) *Order { return nil }", StartLine: 1, EndLine: 5, Language: "go"},
	}
}

func TestBuildAndSearch(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	hits, err := idx.Search(context.Background(), "user", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(1), hits[0].ChunkID)
	assert.Equal(t, "users.go", hits[0].FilePath)
}

func TestSearchMatchesSplitCamelCaseIdentifier(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	hits, err := idx.Search(context.Background(), "getUserById", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(1), hits[0].ChunkID)
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchNonPositiveLimitReturnsEmpty(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	hits, err := idx.Search(context.Background(), "order", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	path := filepath.Join(t.TempDir(), "bm25.idx")
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	hits, err := loaded.Search(context.Background(), "order", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(2), hits[0].ChunkID)
}

func TestSearchDropsCodeStopWords(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Build(context.Background(), sampleChunks()))

	hits, err := idx.Search(context.Background(), "return", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "return is a curated code stop word and should be dropped from the index")
}

func TestLoadMissingPathIsNotPresent(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.idx"))
	assert.Error(t, err)
}
