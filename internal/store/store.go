// Package store implements the Chunk Store (spec §4.4): a durable,
// transactional row store over chunks, backed by SQLite with WAL-mode
// concurrency. Grounded on the teacher's internal/store/sqlite_bm25.go
// (pragma configuration, schema-version table, prepared-statement batch
// writes under a single transaction) and internal/embed/lock.go
// (gofrs/flock single-writer cross-process locking), generalized from the
// teacher's FTS5-specific table to the spec's Chunk row schema.
package store

import (
	"context"

	"github.com/oracle-rag/oracle/internal/chunk"
)

// Store is the Chunk Store contract named by spec §4.4.
type Store interface {
	InsertBatch(ctx context.Context, chunks []chunk.Chunk) error
	DeleteAll(ctx context.Context) error
	DeleteByFile(ctx context.Context, path string) error
	ListByFile(ctx context.Context, path string) ([]chunk.Chunk, error)
	GetByHash(ctx context.Context, contentHash string) (*chunk.Chunk, error)
	ListFilePaths(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]chunk.Chunk, error)
	GetMany(ctx context.Context, ids []int64) ([]chunk.Chunk, error)

	// GetState/SetState persist small indexer checkpoint values (e.g. the
	// last-indexed VCS commit hash) keyed by name, grounded on the
	// teacher's MetadataStore.GetState/SetState.
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}
