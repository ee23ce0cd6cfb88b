package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oracle-rag/oracle/internal/chunk"
	"github.com/oracle-rag/oracle/internal/ocerrors"
)

// sqliteStore is the SQLite-backed Chunk Store, grounded on the teacher's
// SQLiteBM25Index construction sequence (pragma configuration for WAL mode,
// single-connection pool, schema bootstrap) generalized to chunk rows and
// the migration-sequence contract of spec §4.4.
type sqliteStore struct {
	db   *sql.DB
	lock *writerLock
	path string
}

var _ Store = (*sqliteStore)(nil)

// pragmas mirror the teacher's WAL configuration: concurrent readers do not
// block on a writer, per spec §4.4's durability & concurrency contract.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// Open creates or opens a Chunk Store at dbPath, acquiring the single-writer
// file lock and applying any pending migrations.
func Open(dbPath string) (Store, error) {
	lock := newWriterLock(dbPath)
	if err := lock.Lock(); err != nil {
		return nil, ocerrors.IO("acquire chunk store lock", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, ocerrors.IO("open chunk store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, ocerrors.IO(fmt.Sprintf("apply pragma %q", p), err)
		}
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, ocerrors.IO("apply chunk store migrations", err)
	}

	return &sqliteStore{db: db, lock: lock, path: dbPath}, nil
}

func (s *sqliteStore) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// InsertBatch wraps all inserts in one transaction; per spec §4.4, after a
// non-trivial batch the WAL is truncated to bound on-disk growth.
func (s *sqliteStore) InsertBatch(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ocerrors.IO("begin insert batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (file_path, symbol_name, symbol_type, content, content_hash, start_line, end_line, language, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ocerrors.IO("prepare insert statement", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.FilePath, c.SymbolName, string(c.SymbolType), c.Content, c.ContentHash, c.StartLine, c.EndLine, c.Language, now); err != nil {
			return ocerrors.IO(fmt.Sprintf("insert chunk for %s", c.FilePath), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ocerrors.IO("commit insert batch", err)
	}

	if len(chunks) >= walTruncateThreshold {
		if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return ocerrors.IO("truncate write-ahead log", err)
		}
	}

	return nil
}

// walTruncateThreshold is the batch size at or above which InsertBatch truncates
// the WAL after commit, bounding on-disk growth on large full_index runs.
const walTruncateThreshold = 500

func (s *sqliteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return ocerrors.IO("delete all chunks", err)
	}
	return nil
}

func (s *sqliteStore) DeleteByFile(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_path = ?", path); err != nil {
		return ocerrors.IO(fmt.Sprintf("delete chunks for %s", path), err)
	}
	return nil
}

func (s *sqliteStore) ListByFile(ctx context.Context, path string) ([]chunk.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM chunks WHERE file_path = ? ORDER BY start_line", path)
	if err != nil {
		return nil, ocerrors.IO(fmt.Sprintf("list chunks for %s", path), err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *sqliteStore) GetByHash(ctx context.Context, contentHash string) (*chunk.Chunk, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM chunks WHERE content_hash = ? LIMIT 1", contentHash)
	c, err := scanChunkRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, ocerrors.IO("get chunk by hash", err)
	}
	return c, nil
}

func (s *sqliteStore) ListFilePaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT file_path FROM chunks ORDER BY file_path ASC")
	if err != nil {
		return nil, ocerrors.IO("list file paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, ocerrors.IO("scan file path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *sqliteStore) ListAll(ctx context.Context) ([]chunk.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM chunks ORDER BY id ASC")
	if err != nil {
		return nil, ocerrors.IO("list all chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *sqliteStore) GetMany(ctx context.Context, ids []int64) ([]chunk.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	query := selectColumns + " FROM chunks WHERE id IN (" + string(placeholders) + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ocerrors.IO("get many chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *sqliteStore) GetState(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", ocerrors.IO(fmt.Sprintf("get state %q", key), err)
	}
	return value, nil
}

func (s *sqliteStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return ocerrors.IO(fmt.Sprintf("set state %q", key), err)
	}
	return nil
}

const selectColumns = "SELECT id, file_path, symbol_name, symbol_type, content, content_hash, start_line, end_line, language, indexed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunkRow(row rowScanner) (*chunk.Chunk, error) {
	var c chunk.Chunk
	var symbolType string
	if err := row.Scan(&c.ID, &c.FilePath, &c.SymbolName, &symbolType, &c.Content, &c.ContentHash, &c.StartLine, &c.EndLine, &c.Language, &c.IndexedAt); err != nil {
		return nil, err
	}
	c.SymbolType = chunk.SymbolType(symbolType)
	return &c, nil
}

func scanChunks(rows *sql.Rows) ([]chunk.Chunk, error) {
	var out []chunk.Chunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, ocerrors.IO("scan chunk row", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
