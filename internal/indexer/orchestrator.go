// Package indexer implements the Indexer Orchestrator (spec §4.10): the two
// top-level build entry points, full_index and update_index, that wire the
// Repository Walker, Chunker, Chunk Store, Lexical Index, and Vector Index
// together. Grounded on the teacher's internal/index/runner.go (Runner.Run
// step sequence: scan, chunk, batch-insert, generate embeddings, build
// indices) generalized to the spec's exact contract.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oracle-rag/oracle/internal/chunk"
	"github.com/oracle-rag/oracle/internal/embed"
	"github.com/oracle-rag/oracle/internal/lexical"
	"github.com/oracle-rag/oracle/internal/ocerrors"
	"github.com/oracle-rag/oracle/internal/store"
	"github.com/oracle-rag/oracle/internal/vector"
	"github.com/oracle-rag/oracle/internal/walker"
)

// Options configures an indexing run.
type Options struct {
	MaxBytes        int64
	ExtraIgnoreDirs []string
	LexicalPath     string
	VectorPath      string
	// OnEmbedProgress, if set, is called after each chunk is embedded
	// during the Vector Index build (spec §4.10 step 8's "report progress
	// via a callback if provided").
	OnEmbedProgress func(done, total int)
}

// Stats is the result of an indexing run, per spec §4.10.
type Stats struct {
	FilesDiscovered int
	FilesProcessed  int
	FilesFailed     int
	ChunksCreated   int
	DurationMs      int64
}

// Orchestrator wires the components an indexing run needs.
type Orchestrator struct {
	registry *chunk.Registry
	parser   *chunk.Parser
	chunker  *chunk.Chunker
	embedder embed.Embedder
	logger   *slog.Logger
}

// New builds an Orchestrator over a registry, parser, chunker and embedder.
func New(registry *chunk.Registry, parser *chunk.Parser, chunker *chunk.Chunker, embedder embed.Embedder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{registry: registry, parser: parser, chunker: chunker, embedder: embedder, logger: logger}
}

// Close releases the Orchestrator's parser and embedder, per spec §5's
// guaranteed-release contract.
func (o *Orchestrator) Close() error {
	o.parser.Close()
	return o.embedder.Close()
}

const lastCommitStateKey = "indexer.last_commit"

// FullIndex implements spec §4.10's full_index: truncate and rebuild the
// Chunk Store, Lexical Index, and Vector Index from scratch.
func (o *Orchestrator) FullIndex(ctx context.Context, repoPath, dbPath string, opts Options) (Stats, error) {
	start := time.Now()

	s, err := store.Open(dbPath)
	if err != nil {
		return Stats{}, err
	}
	defer s.Close()

	if err := s.DeleteAll(ctx); err != nil {
		return Stats{}, err
	}

	paths, err := walker.Discover(repoPath, walker.Options{MaxBytes: opts.MaxBytes, ExtraIgnoreDirs: opts.ExtraIgnoreDirs}, o.logger)
	if err != nil {
		return Stats{}, err
	}

	chunks, processed, failed := o.chunkFiles(ctx, repoPath, paths)

	if err := s.InsertBatch(ctx, chunks); err != nil {
		return Stats{}, err
	}

	if err := o.recordCommitCheckpoint(ctx, s, repoPath); err != nil {
		o.logger.Warn("could not record VCS checkpoint", "error", err)
	}

	if err := o.rebuildIndices(ctx, s, opts); err != nil {
		return Stats{}, err
	}

	return Stats{
		FilesDiscovered: len(paths),
		FilesProcessed:  processed,
		FilesFailed:     failed,
		ChunksCreated:   len(chunks),
		DurationMs:      time.Since(start).Milliseconds(),
	}, nil
}

// UpdateIndex implements spec §4.10's update_index: reindex only files
// changed since the last VCS checkpoint, falling back to FullIndex when
// change detection is unavailable.
func (o *Orchestrator) UpdateIndex(ctx context.Context, repoPath, dbPath string, opts Options) (Stats, error) {
	start := time.Now()

	s, err := store.Open(dbPath)
	if err != nil {
		return Stats{}, err
	}
	defer s.Close()

	lastCommit, _ := s.GetState(ctx, lastCommitStateKey)

	changed, err := ChangedFiles(repoPath, lastCommit)
	if err != nil {
		o.logger.Info("VCS change detection unavailable, falling back to full index", "error", err)
		return o.fullIndexWithOpenStore(ctx, s, repoPath, opts, start)
	}

	var chunksCreated, processed, failed int
	var toReindex []string

	for _, relPath := range changed {
		absPath := filepath.Join(repoPath, filepath.FromSlash(relPath))
		needsReindex, err := o.needsReindex(ctx, s, relPath, absPath)
		if err != nil {
			o.logger.Warn("could not evaluate file for reindex", "file", relPath, "error", err)
			continue
		}
		if needsReindex {
			toReindex = append(toReindex, relPath)
		}
	}

	var accumulated []chunk.Chunk
	for _, relPath := range toReindex {
		if err := s.DeleteByFile(ctx, relPath); err != nil {
			return Stats{}, err
		}

		absPath := filepath.Join(repoPath, filepath.FromSlash(relPath))
		cs, ok, err := o.chunkOneFile(ctx, relPath, absPath)
		if err != nil {
			failed++
			o.logger.Warn("failed to reindex file", "file", relPath, "error", err)
			continue
		}
		if !ok {
			continue
		}
		processed++
		accumulated = append(accumulated, cs...)
	}
	chunksCreated = len(accumulated)

	if err := s.InsertBatch(ctx, accumulated); err != nil {
		return Stats{}, err
	}

	if err := o.recordCommitCheckpoint(ctx, s, repoPath); err != nil {
		o.logger.Warn("could not record VCS checkpoint", "error", err)
	}

	// Per SPEC_FULL.md §13 item 1: rebuild both indices at the end of the
	// incremental path rather than leaving them stale.
	if err := o.rebuildIndices(ctx, s, opts); err != nil {
		return Stats{}, err
	}

	return Stats{
		FilesDiscovered: len(changed),
		FilesProcessed:  processed,
		FilesFailed:     failed,
		ChunksCreated:   chunksCreated,
		DurationMs:      time.Since(start).Milliseconds(),
	}, nil
}

func (o *Orchestrator) fullIndexWithOpenStore(ctx context.Context, s store.Store, repoPath string, opts Options, start time.Time) (Stats, error) {
	if err := s.DeleteAll(ctx); err != nil {
		return Stats{}, err
	}

	paths, err := walker.Discover(repoPath, walker.Options{MaxBytes: opts.MaxBytes, ExtraIgnoreDirs: opts.ExtraIgnoreDirs}, o.logger)
	if err != nil {
		return Stats{}, err
	}

	chunks, processed, failed := o.chunkFiles(ctx, repoPath, paths)

	if err := s.InsertBatch(ctx, chunks); err != nil {
		return Stats{}, err
	}

	if err := o.recordCommitCheckpoint(ctx, s, repoPath); err != nil {
		o.logger.Warn("could not record VCS checkpoint", "error", err)
	}

	if err := o.rebuildIndices(ctx, s, opts); err != nil {
		return Stats{}, err
	}

	return Stats{
		FilesDiscovered: len(paths),
		FilesProcessed:  processed,
		FilesFailed:     failed,
		ChunksCreated:   len(chunks),
		DurationMs:      time.Since(start).Milliseconds(),
	}, nil
}

// needsReindex implements spec §4.10 step 3 as a per-chunk diff: a file
// needs reindexing if it has no existing chunks, cannot be read, or
// re-chunking its current content yields a different chunk count or any
// chunk hash that differs from the stored chunk at the same position
// (ordered by start line). A file with an unregistered extension is never
// reindexed. relPath is the repository-relative,
// forward-slash-normalized key used by the Chunk Store and the Chunker
// (spec §3); absPath is only used to read the file off disk.
func (o *Orchestrator) needsReindex(ctx context.Context, s store.Store, relPath, absPath string) (bool, error) {
	existing, err := s.ListByFile(ctx, relPath)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return true, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		// File was deleted or is unreadable; treat as needing reindex so
		// DeleteByFile clears stale rows for it.
		return true, nil
	}

	reg, ok := o.registry.ByExtension(filepath.Ext(absPath))
	if !ok {
		return false, nil
	}

	cs, err := o.chunker.Chunk(ctx, relPath, content, reg)
	if err != nil {
		return false, err
	}

	if len(cs) != len(existing) {
		return true, nil
	}
	for i, c := range cs {
		if c.ContentHash != existing[i].ContentHash {
			return true, nil
		}
	}
	return false, nil
}

// chunkOneFile chunks a single file for the incremental path. relPath is
// the repository-relative key stored on the resulting Chunks; absPath is
// only used to read the file off disk.
func (o *Orchestrator) chunkOneFile(ctx context.Context, relPath, absPath string) ([]chunk.Chunk, bool, error) {
	reg, ok := o.registry.ByExtension(filepath.Ext(absPath))
	if !ok {
		return nil, false, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, false, ocerrors.IO("read file for reindex", err)
	}
	cs, err := o.chunker.Chunk(ctx, relPath, content, reg)
	if err != nil {
		return nil, false, err
	}
	return cs, true, nil
}

// chunkFiles implements spec §4.10 step 5: for each discovered file,
// determine grammar by extension (skip unknown), read content, chunk,
// accumulate. Per-file errors are warnings; the run continues. Chunks are
// keyed by the repository-relative, forward-slash-normalized path (spec
// §3's file_path invariant), even though paths is the Walker's absolute
// output and reading still happens against the absolute path.
func (o *Orchestrator) chunkFiles(ctx context.Context, repoPath string, paths []string) (chunks []chunk.Chunk, processed, failed int) {
	for _, path := range paths {
		reg, ok := o.registry.ByExtension(filepath.Ext(path))
		if !ok {
			continue
		}

		relPath, err := relChunkPath(repoPath, path)
		if err != nil {
			failed++
			o.logger.Warn("could not relativize file path, skipping", "file", path, "error", err)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			failed++
			o.logger.Warn("could not read file, skipping", "file", path, "error", err)
			continue
		}

		cs, err := o.chunker.Chunk(ctx, relPath, content, reg)
		if err != nil {
			failed++
			o.logger.Warn("could not chunk file, skipping", "file", path, "error", err)
			continue
		}

		processed++
		chunks = append(chunks, cs...)
	}
	return chunks, processed, failed
}

// relChunkPath converts an absolute (or repo-rooted) file path into the
// repository-relative, forward-slash-normalized form spec §3 requires for
// Chunk.FilePath.
func relChunkPath(repoPath, path string) (string, error) {
	rel, err := filepath.Rel(repoPath, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// rebuildIndices implements spec §4.10 steps 7-8: build and persist the
// Lexical Index from list_all(), then build and persist the Vector Index by
// embedding each chunk's content.
func (o *Orchestrator) rebuildIndices(ctx context.Context, s store.Store, opts Options) error {
	all, err := s.ListAll(ctx)
	if err != nil {
		return err
	}

	lex, err := lexical.New()
	if err != nil {
		return err
	}
	defer lex.Close()

	if err := lex.Build(ctx, all); err != nil {
		return err
	}
	if opts.LexicalPath != "" {
		if err := lex.Save(opts.LexicalPath); err != nil {
			return err
		}
	}

	vec := vector.New()
	total := len(all)
	for i, c := range all {
		embedding, err := o.embedder.Embed(ctx, c.Content)
		if err != nil {
			return err
		}
		if err := vec.Add(c.ID, embedding); err != nil {
			return err
		}
		if opts.OnEmbedProgress != nil {
			opts.OnEmbedProgress(i+1, total)
		}
	}
	if opts.VectorPath != "" {
		if err := vec.Save(opts.VectorPath); err != nil {
			return err
		}
	}

	return nil
}

func (o *Orchestrator) recordCommitCheckpoint(ctx context.Context, s store.Store, repoPath string) error {
	head, err := HeadCommit(repoPath)
	if err != nil {
		return err
	}
	return s.SetState(ctx, lastCommitStateKey, head)
}
