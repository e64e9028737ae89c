package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"hexlands/pkg/world"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS world_tiles (
	q INTEGER NOT NULL,
	r INTEGER NOT NULL,
	owner_id TEXT,
	owner_alliance_tag TEXT,
	owner_alliance_color TEXT,
	energy REAL NOT NULL DEFAULT 0,
	integrity REAL NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	tile_type TEXT NOT NULL DEFAULT 'normal',
	last_update INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (q, r)
);
CREATE INDEX IF NOT EXISTS idx_world_tiles_owner ON world_tiles (owner_id);
CREATE INDEX IF NOT EXISTS idx_world_tiles_last_update ON world_tiles (last_update);

CREATE TABLE IF NOT EXISTS world_archives (
	id TEXT PRIMARY KEY,
	created_ms INTEGER NOT NULL,
	tile_count INTEGER NOT NULL,
	state_hash TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	state_blob BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_world_archives_created ON world_archives (created_ms);
`

// SQLite is the single-node snapshot sink and archive store.
type SQLite struct {
	db *sql.DB
}

var _ world.SnapshotSink = (*SQLite)(nil)
var _ world.Archiver = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and prepares the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an existing handle, applying pragmas and the schema. The
// caller keeps ownership of db until Close.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("store: apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("store: ensure sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// UpsertTiles replaces each row keyed by (q, r) inside one transaction.
func (s *SQLite) UpsertTiles(ctx context.Context, tiles []world.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO world_tiles
		(q, r, owner_id, owner_alliance_tag, owner_alliance_color, energy, integrity, level, tile_type, last_update)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tiles {
		if _, err := stmt.ExecContext(ctx,
			t.Coord.Q, t.Coord.R,
			nullable(t.OwnerID), nullable(t.AllianceTag), nullable(t.AllianceColor),
			t.Energy, t.Integrity, t.Level, t.Type, t.LastUpdate,
		); err != nil {
			return fmt.Errorf("store: upsert tile %s: %w", t.Coord.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit upsert: %w", err)
	}
	return nil
}

// ArchiveWorld appends the tile set to the archive chain.
func (s *SQLite) ArchiveWorld(ctx context.Context, now int64, tiles []world.Tile) error {
	blob, hash, err := encodeArchive(tiles)
	if err != nil {
		return err
	}
	prev := ""
	err = s.db.QueryRowContext(ctx,
		`SELECT state_hash FROM world_archives ORDER BY created_ms DESC, id DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: read archive head: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO world_archives (id, created_ms, tile_count, state_hash, prev_hash, state_blob)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), now, len(tiles), hash, prev, blob,
	); err != nil {
		return fmt.Errorf("store: insert archive: %w", err)
	}
	return nil
}

// LatestArchive returns the newest archive, or nil when none exist.
func (s *SQLite) LatestArchive(ctx context.Context) (*Archive, error) {
	var a Archive
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_ms, tile_count, state_hash, prev_hash, state_blob
		 FROM world_archives ORDER BY created_ms DESC, id DESC LIMIT 1`).
		Scan(&a.ID, &a.CreatedMs, &a.TileCount, &a.StateHash, &a.PrevHash, &a.Blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read latest archive: %w", err)
	}
	return &a, nil
}

// VerifyArchiveChain re-hashes every archive oldest-first and checks the
// prev-hash links. Returns the number of verified archives.
func (s *SQLite) VerifyArchiveChain(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state_hash, prev_hash, state_blob FROM world_archives ORDER BY created_ms ASC, id ASC`)
	if err != nil {
		return 0, fmt.Errorf("store: read archive chain: %w", err)
	}
	defer rows.Close()

	prev := ""
	n := 0
	for rows.Next() {
		var id, stateHash, prevHash string
		var blob []byte
		if err := rows.Scan(&id, &stateHash, &prevHash, &blob); err != nil {
			return n, fmt.Errorf("store: scan archive: %w", err)
		}
		if hashBLAKE3(blob) != stateHash {
			return n, fmt.Errorf("store: archive %s does not match its hash", id)
		}
		if prevHash != prev {
			return n, fmt.Errorf("store: archive %s breaks the chain", id)
		}
		prev = stateHash
		n++
	}
	return n, rows.Err()
}
