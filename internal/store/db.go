// Package store implements the Persister and QueryGateway against a
// mattn/go-sqlite3-backed database standing in for the key-value store
// the pipeline needs (conditional writes modeled as SQLite
// transactions, GSIs modeled as indexes on ordinary columns). It also
// holds a filesystem-backed object store for replay blobs and rendered
// videos, and a retention compactor using klauspost/compress/zstd.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the underlying connection and owns schema migration.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the SQLite database at dsn and ensures
// the schema exists.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The Persister's conditional MATCH write relies on a
	// single-writer compare-and-set; a single connection keeps that
	// honest without needing SQLite's busy-timeout tuning.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// gameTypeTables enumerates the physical tables backing the logical
// "matches-{gameType}" tables, one per game-type bucket.
var gameTypeTables = []string{"matches_clan", "matches_ranked", "matches_random", "matches_other"}

func (db *DB) migrate() error {
	stmts := []string{}
	for _, t := range gameTypeTables {
		stmts = append(stmts, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	arena_unique_id TEXT NOT NULL,
	sort_key        TEXT NOT NULL,
	listing_key     TEXT NOT NULL DEFAULT '',
	unix_time       INTEGER NOT NULL DEFAULT 0,
	map_id          TEXT NOT NULL DEFAULT '',
	payload         TEXT NOT NULL,
	PRIMARY KEY (arena_unique_id, sort_key)
)`, t))
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_listing_unixtime ON %s (listing_key, unix_time)`, t, t))
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_mapid_unixtime ON %s (map_id, unix_time)`, t, t))
	}

	// The index tables carry unix_time as a real column so range scans can
	// run newest-first with the cursor and date range as bounds — the
	// composite sort_key string is kept for the record payloads but its
	// unpadded unixTime segment doesn't order lexicographically.
	for _, t := range []string{"ship_index", "player_index", "clan_index"} {
		stmts = append(stmts, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	dimension_value TEXT NOT NULL,
	sort_key        TEXT NOT NULL,
	arena_unique_id TEXT NOT NULL,
	unix_time       INTEGER NOT NULL DEFAULT 0,
	payload         TEXT NOT NULL,
	PRIMARY KEY (dimension_value, sort_key)
)`, t))
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_dimension_unixtime ON %s (dimension_value, unix_time)`, t, t))
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}
	return nil
}
