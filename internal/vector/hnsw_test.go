package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVector(t *testing.T, hot int) []float32 {
	t.Helper()
	v := make([]float32, Dimensions)
	v[hot] = 1
	return v
}

func TestAddAndSearchReturnsNearestFirst(t *testing.T) {
	idx := New()

	require.NoError(t, idx.Add(1, unitVector(t, 0)))
	require.NoError(t, idx.Add(2, unitVector(t, 1)))
	require.NoError(t, idx.Add(3, unitVector(t, 2)))

	results, err := idx.Search(context.Background(), unitVector(t, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	idx := New()
	_, err := idx.Search(context.Background(), []float32{1, 2, 3}, 5)
	assert.Error(t, err)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	idx := New()
	err := idx.Add(1, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestSearchNonPositiveKReturnsEmpty(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, unitVector(t, 0)))

	results, err := idx.Search(context.Background(), unitVector(t, 0), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	idx := New()
	results, err := idx.Search(context.Background(), unitVector(t, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRemoveExcludesChunkFromSearch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, unitVector(t, 0)))
	require.NoError(t, idx.Add(2, unitVector(t, 1)))

	idx.Remove(1)

	results, err := idx.Search(context.Background(), unitVector(t, 0), 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, int64(1), r.ChunkID)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, unitVector(t, 0)))
	require.NoError(t, idx.Add(2, unitVector(t, 1)))
	idx.Remove(2)

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, idx.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	results, err := reloaded.Search(context.Background(), unitVector(t, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ChunkID)
}

func TestLoadMissingPathIsNotPresent(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hnsw"))
	assert.Error(t, err)
}
