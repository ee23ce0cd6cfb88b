// Package retriever implements the Retriever (spec §4.11): the query-time
// pipeline that fans out lexical search and query embedding concurrently,
// runs a vector search, fuses the two ranked lists via RRF, and hydrates the
// fused ids back into full chunk records. Grounded on the teacher's
// internal/search/hybrid.go (errgroup fan-out of BM25 search against query
// embedding, vector search after rendezvous, then fusion and hydration).
package retriever

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/oracle-rag/oracle/internal/chunk"
	"github.com/oracle-rag/oracle/internal/embed"
	"github.com/oracle-rag/oracle/internal/fusion"
	"github.com/oracle-rag/oracle/internal/lexical"
	"github.com/oracle-rag/oracle/internal/store"
	"github.com/oracle-rag/oracle/internal/vector"
)

// Options configures a single hybrid_search call, defaulting to the values
// fixed by spec §4.11.
type Options struct {
	BM25Limit   int
	VectorLimit int
	FusionLimit int
	RRFK        int
}

// DefaultOptions returns spec §4.11's default limits.
func DefaultOptions() Options {
	return Options{BM25Limit: 200, VectorLimit: 100, FusionLimit: 30, RRFK: 60}
}

func (o Options) withDefaults() Options {
	if o.BM25Limit <= 0 {
		o.BM25Limit = 200
	}
	if o.VectorLimit <= 0 {
		o.VectorLimit = 100
	}
	if o.FusionLimit <= 0 {
		o.FusionLimit = 30
	}
	if o.RRFK <= 0 {
		o.RRFK = 60
	}
	return o
}

// Result is a single hydrated, ranked hit, per spec §4.11 step 8.
type Result struct {
	ID         int64
	FilePath   string
	SymbolName string
	Content    string
	StartLine  int
	EndLine    int
	Score      float64
}

// Retriever is the query-time pipeline over a Chunk Store, Lexical Index,
// Vector Index, and Embedder.
type Retriever struct {
	store    store.Store
	lex      *lexical.Index
	vec      *vector.Index
	embedder embed.Embedder
}

// New builds a Retriever over already-open stores and indices.
func New(s store.Store, lex *lexical.Index, vec *vector.Index, embedder embed.Embedder) *Retriever {
	return &Retriever{store: s, lex: lex, vec: vec, embedder: embedder}
}

// HybridSearch implements spec §4.11's hybrid_search.
func (r *Retriever) HybridSearch(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	opts = opts.withDefaults()

	var lexHits []lexical.Hit
	var queryEmbedding []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.lex.Search(gctx, query, opts.BM25Limit)
		if err != nil {
			return err
		}
		lexHits = hits
		return nil
	})
	g.Go(func() error {
		embedding, err := r.embedder.Embed(gctx, query)
		if err != nil {
			return err
		}
		queryEmbedding = embedding
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vecHits, err := r.vec.Search(ctx, queryEmbedding, opts.VectorLimit)
	if err != nil {
		return nil, err
	}

	lexItems := make([]fusion.Item, len(lexHits))
	for i, h := range lexHits {
		lexItems[i] = fusion.Item{ID: h.ChunkID}
	}
	vecItems := make([]fusion.Item, len(vecHits))
	for i, h := range vecHits {
		vecItems[i] = fusion.Item{ID: h.ChunkID}
	}

	fused := fusion.RRF([][]fusion.Item{lexItems, vecItems}, opts.RRFK)
	if len(fused) > opts.FusionLimit {
		fused = fused[:opts.FusionLimit]
	}

	ids := make([]int64, 0, len(fused))
	for _, f := range fused {
		id, ok := f.ID.(int64)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}

	chunks, err := r.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	// GetMany's order is not guaranteed to match ids; resolve by fused
	// rank and drop ids with no matching row (spec §4.11 step 7 — possible
	// only under concurrent modification).
	scoreByID := make(map[int64]float64, len(fused))
	for _, f := range fused {
		if id, ok := f.ID.(int64); ok {
			scoreByID[id] = f.Score
		}
	}

	byID := make(map[int64]chunk.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, Result{
			ID:         c.ID,
			FilePath:   c.FilePath,
			SymbolName: c.SymbolName,
			Content:    c.Content,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Score:      scoreByID[id],
		})
	}
	return results, nil
}
