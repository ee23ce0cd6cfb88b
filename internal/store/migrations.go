package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one strictly-ordered schema change, per spec §4.4's schema
// evolution contract: applied in ascending version order, each application
// atomically advances the stored user-version.
type migration struct {
	version     int
	description string
	upgrade     func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "create chunks table and secondary indices",
		upgrade: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS chunks (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					file_path     TEXT NOT NULL,
					symbol_name   TEXT NOT NULL DEFAULT '',
					symbol_type   TEXT NOT NULL,
					content       TEXT NOT NULL,
					content_hash  TEXT NOT NULL,
					start_line    INTEGER NOT NULL,
					end_line      INTEGER NOT NULL,
					language      TEXT NOT NULL,
					indexed_at    INTEGER NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
				CREATE INDEX IF NOT EXISTS idx_chunks_content_hash ON chunks(content_hash);
				CREATE INDEX IF NOT EXISTS idx_chunks_symbol_name ON chunks(symbol_name);
				CREATE INDEX IF NOT EXISTS idx_chunks_language ON chunks(language);
			`)
			return err
		},
	},
	{
		version:     2,
		description: "create state table for indexer checkpoints",
		upgrade: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS state (
					key   TEXT PRIMARY KEY,
					value TEXT NOT NULL
				);
			`)
			return err
		},
	},
}

// applyMigrations runs every migration with version greater than the
// store's current user_version, each in its own transaction, advancing
// user_version after each successful application so a failing migration
// leaves the store at the last fully-applied version. Applied versions are
// additionally recorded append-only in schema_migrations(version,
// applied_at), per spec §4.4/§6.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  INTEGER NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if err := m.upgrade(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.description, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("advance schema version to %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.version, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema_migrations row for %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
