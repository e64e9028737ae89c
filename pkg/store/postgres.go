package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hexlands/pkg/world"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS world_tiles (
	q BIGINT NOT NULL,
	r BIGINT NOT NULL,
	owner_id TEXT,
	owner_alliance_tag TEXT,
	owner_alliance_color TEXT,
	energy DOUBLE PRECISION NOT NULL DEFAULT 0,
	integrity DOUBLE PRECISION NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	tile_type TEXT NOT NULL DEFAULT 'normal',
	last_update BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (q, r)
);
CREATE INDEX IF NOT EXISTS idx_world_tiles_owner ON world_tiles (owner_id);
CREATE INDEX IF NOT EXISTS idx_world_tiles_last_update ON world_tiles (last_update);

CREATE TABLE IF NOT EXISTS world_archives (
	id TEXT PRIMARY KEY,
	created_ms BIGINT NOT NULL,
	tile_count INTEGER NOT NULL,
	state_hash TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	state_blob BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_world_archives_created ON world_archives (created_ms);
`

// Postgres is the production snapshot sink and archive store.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ world.SnapshotSink = (*Postgres)(nil)
var _ world.Archiver = (*Postgres)(nil)

// PostgresOptions configures the pool.
type PostgresOptions struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// OpenPostgres connects, pings and prepares the schema.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// UpsertTiles writes the whole batch as one multi-row insert with a
// (q, r) conflict update.
func (p *Postgres) UpsertTiles(ctx context.Context, tiles []world.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO world_tiles
		(q, r, owner_id, owner_alliance_tag, owner_alliance_color, energy, integrity, level, tile_type, last_update)
		VALUES `)
	args := make([]any, 0, len(tiles)*10)
	for i, t := range tiles {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i * 10
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args,
			t.Coord.Q, t.Coord.R,
			nullable(t.OwnerID), nullable(t.AllianceTag), nullable(t.AllianceColor),
			t.Energy, t.Integrity, t.Level, t.Type, t.LastUpdate)
	}
	sb.WriteString(` ON CONFLICT (q, r) DO UPDATE SET
		owner_id = EXCLUDED.owner_id,
		owner_alliance_tag = EXCLUDED.owner_alliance_tag,
		owner_alliance_color = EXCLUDED.owner_alliance_color,
		energy = EXCLUDED.energy,
		integrity = EXCLUDED.integrity,
		level = EXCLUDED.level,
		tile_type = EXCLUDED.tile_type,
		last_update = EXCLUDED.last_update`)

	if _, err := p.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("store: upsert %d tiles: %w", len(tiles), err)
	}
	return nil
}

// ArchiveWorld appends the tile set to the archive chain.
func (p *Postgres) ArchiveWorld(ctx context.Context, now int64, tiles []world.Tile) error {
	blob, hash, err := encodeArchive(tiles)
	if err != nil {
		return err
	}
	prev := ""
	err = p.pool.QueryRow(ctx,
		`SELECT state_hash FROM world_archives ORDER BY created_ms DESC, id DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("store: read archive head: %w", err)
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO world_archives (id, created_ms, tile_count, state_hash, prev_hash, state_blob)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), now, len(tiles), hash, prev, blob,
	); err != nil {
		return fmt.Errorf("store: insert archive: %w", err)
	}
	return nil
}

// LatestArchive returns the newest archive, or nil when none exist.
func (p *Postgres) LatestArchive(ctx context.Context) (*Archive, error) {
	var a Archive
	err := p.pool.QueryRow(ctx,
		`SELECT id, created_ms, tile_count, state_hash, prev_hash, state_blob
		 FROM world_archives ORDER BY created_ms DESC, id DESC LIMIT 1`).
		Scan(&a.ID, &a.CreatedMs, &a.TileCount, &a.StateHash, &a.PrevHash, &a.Blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read latest archive: %w", err)
	}
	return &a, nil
}

// VerifyArchiveChain re-hashes every archive oldest-first and checks the
// prev-hash links. Returns the number of verified archives.
func (p *Postgres) VerifyArchiveChain(ctx context.Context) (int, error) {
	rows, err := p.pool.Query(ctx,
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
