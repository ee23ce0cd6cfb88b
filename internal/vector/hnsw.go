// Package vector implements the Vector Index (spec §4.7): an HNSW
// approximate-nearest-neighbor index over chunk embeddings. Grounded on the
// teacher's internal/store/hnsw.go (coder/hnsw graph construction, cosine
// distance, write-then-rename atomic Save via graph.Export/Import).
//
// Unlike the teacher, which maps string chunk ids to internal uint64 graph
// keys (because its Chunk.ID is a content-hash string), this core's chunk
// ids are already int64 — coder/hnsw's generic Graph[T] is keyed directly
// by int64, so no id-mapping layer is needed.
package vector

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/oracle-rag/oracle/internal/ocerrors"
)

// Construction parameters fixed by spec §4.7: cosine metric, 384
// dimensions, connectivity (M) = 16, expansion_search (EfSearch) = 64,
// single vector per key.
const (
	Dimensions      = 384
	connectivity    = 16
	expansionSearch = 64
)

// Result is a single nearest-neighbor hit.
type Result struct {
	ChunkID int64
	Score   float64 // cosine similarity, higher is better
}

// Index is the Vector Index (spec §4.7).
type Index struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	tombstoned map[int64]struct{}
}

// New constructs an empty Vector Index with the spec-fixed parameters.
func New() *Index {
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	g.M = connectivity
	g.EfSearch = expansionSearch
	g.Ml = 0.25
	return &Index{graph: g, tombstoned: make(map[int64]struct{})}
}

// Len returns the number of live (non-tombstoned) vectors, used by
// consistency checking against the Chunk Store's row count.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len() - len(idx.tombstoned)
}

// Add inserts or replaces the embedding for chunkID. Per spec §4.7, a key
// carries at most one vector; re-adding replaces it.
func (idx *Index) Add(chunkID int64, embedding []float32) error {
	if len(embedding) != Dimensions {
		return ocerrors.InvalidInput(fmt.Sprintf("embedding has %d dimensions, want %d", len(embedding), Dimensions), nil)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.tombstoned, chunkID)
	idx.graph.Add(hnsw.MakeNode(chunkID, embedding))
	return nil
}

// Remove tombstones chunkID so it no longer appears in Search results. The
// underlying graph node is left in place rather than deleted, matching the
// teacher's lazy-deletion workaround for a coder/hnsw bug when deleting the
// last remaining node.
func (idx *Index) Remove(chunkID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tombstoned[chunkID] = struct{}{}
}

// Search returns up to k nearest neighbors of query.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != Dimensions {
		return nil, ocerrors.InvalidInput(fmt.Sprintf("query has %d dimensions, want %d", len(query), Dimensions), nil)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return nil, nil
	}

	// Over-fetch to compensate for tombstoned nodes the graph still holds.
	nodes := idx.graph.Search(query, k+len(idx.tombstoned))
	results := make([]Result, 0, k)
	for _, n := range nodes {
		if _, dead := idx.tombstoned[n.Key]; dead {
			continue
		}
		dist := idx.graph.Distance(query, n.Value)
		results = append(results, Result{ChunkID: n.Key, Score: 1 - float64(dist)})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Save persists the graph to path, and its tombstone set to path+".meta",
// each via write-then-rename, matching the atomic-save requirement in
// spec §5.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ocerrors.IO("create vector index directory", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return ocerrors.IO("create vector index temp file", err)
	}

	if err := idx.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ocerrors.IO("export vector index", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return ocerrors.IO("close vector index temp file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ocerrors.IO("rename vector index into place", err)
	}

	return idx.saveTombstones(path + ".meta")
}

func (idx *Index) saveTombstones(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return ocerrors.IO("create vector index metadata temp file", err)
	}

	if err := gob.NewEncoder(f).Encode(idx.tombstoned); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ocerrors.IO("encode vector index metadata", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return ocerrors.IO("close vector index metadata temp file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ocerrors.IO("rename vector index metadata into place", err)
	}
	return nil
}

// Load opens a previously persisted Vector Index. Returns *not-present* if
// path is missing and *corrupt* if the file fails to parse as a graph,
// matching the Lexical Index's Load contract (spec §4.5/§4.7 symmetry).
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ocerrors.NotFound("vector index not present at " + path)
		}
		return nil, ocerrors.IO("open vector index", err)
	}
	defer f.Close()

	idx := New()
	if err := idx.graph.Import(bufio.NewReader(f)); err != nil {
		return nil, ocerrors.Corrupt("vector index corrupt at "+path, err)
	}

	metaPath := path + ".meta"
	if metaFile, err := os.Open(metaPath); err == nil {
		defer metaFile.Close()
		if err := gob.NewDecoder(metaFile).Decode(&idx.tombstoned); err != nil {
			return nil, ocerrors.Corrupt("vector index metadata corrupt at "+metaPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, ocerrors.IO("open vector index metadata", err)
	}

	return idx, nil
}
