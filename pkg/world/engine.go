// Package world implements the authoritative state engine for the hex
// territory game: claim/repair rules, alliance handling, the recharge
// simulation, spatial queries, the leaderboard and the snapshot pipeline.
// It talks only to the kv.Store surface and a SnapshotSink; everything else
// (transport, identity, rendering) lives outside.
package world

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hexlands/pkg/hex"
	"hexlands/pkg/kv"
	"hexlands/pkg/logger"
)

// coordCheckSize is the projection size used by the round-trip coordinate
// guard. Any positive value works; the guard exists to reject coordinates
// that do not survive float projection.
const coordCheckSize = 1.0

// tickScanCount is the SScan page size for recharge sweeps.
const tickScanCount = 512

// SnapshotSink receives batched tile upserts. Implementations must be
// idempotent on (q, r).
type SnapshotSink interface {
	UpsertTiles(ctx context.Context, tiles []Tile) error
}

// Archiver receives the full tile set when an archive is due. Optional.
type Archiver interface {
	ArchiveWorld(ctx context.Context, now int64, tiles []Tile) error
}

// Engine owns the world state. All public operations are safe for
// concurrent use; per-tile and per-player serialization happens on two
// keyed lock tables.
type Engine struct {
	cfg   Config
	store kv.Store
	sink  SnapshotSink
	log   *zap.Logger

	// Archiver, if set before Start, is handed the full tile set every
	// cfg.ArchiveEveryFlushes snapshot flushes.
	Archiver Archiver

	// OnError, if set before Start, receives background loop failures.
	// Defaults to logging; the loops never stop on error either way.
	OnError func(error)

	now func() int64

	tileLocks   lockTable
	playerLocks lockTable

	loopMu  sync.Mutex
	stopCh  chan struct{}
	loopWg  sync.WaitGroup
	flushes int64
}

// NewEngine wires an engine over a KV store and a snapshot sink. The sink
// may be nil, which disables the durable-write path (used by some tests).
func NewEngine(cfg Config, store kv.Store, sink SnapshotSink) *Engine {
	return &Engine{
		cfg:   cfg,
		store: store,
		sink:  sink,
		log:   logger.Get().Named("world"),
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) reportError(err error) {
	if e.OnError != nil {
		e.OnError(err)
		return
	}
	e.log.Error("background task failed", zap.Error(err))
}

// --- Validation ---

func normalizeUserID(userID string) (string, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// validateCoord projects the coordinate to pixel space and back. Honest
// integer inputs always pass; coordinates large enough to lose precision in
// float projection do not.
func validateCoord(c hex.Coord) error {
	x, y, err := hex.ToPixel(c, coordCheckSize)
	if err != nil {
		return err
	}
	back, err := hex.FromPixel(x, y, coordCheckSize)
	if err != nil {
		return err
	}
	if back != c {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidCoordinates, c.Q, c.R)
	}
	return nil
}

// --- Record IO ---

// loadTile reads a tile hash. Returns nil when the tile does not exist.
func (e *Engine) loadTile(ctx context.Context, c hex.Coord) (*Tile, error) {
	fields, err := e.store.HGetAll(ctx, tileKey(c))
	if err != nil {
		return nil, err
	}
	return decodeTile(c, fields), nil
}

func (e *Engine) saveTile(ctx context.Context, t *Tile) error {
	_, err := e.store.HSet(ctx, tileKey(t.Coord), encodeTile(t))
	return err
}

// loadPlayer reads a profile without creating one. Returns nil when the
// player has never been seen.
func (e *Engine) loadPlayer(ctx context.Context, uid string) (*PlayerProfile, error) {
	fields, err := e.store.HGetAll(ctx, playerKey(uid))
	if err != nil {
		return nil, err
	}
	return decodePlayer(uid, fields), nil
}

// loadOrCreatePlayer returns the profile, lazily creating it with the
// initial energy grant. Callers hold the player lock.
func (e *Engine) loadOrCreatePlayer(ctx context.Context, uid string) (*PlayerProfile, error) {
	key := playerKey(uid)
	created, err := e.store.HSetNX(ctx, key, fieldDisplayName, uid)
	if err != nil {
		return nil, err
	}
	if created {
		_, err = e.store.HSet(ctx, key, map[string]string{
			fieldPlayerEnergy:     formatFloat(e.cfg.InitialPlayerEnergy),
			fieldPlayerLastUpdate: strconv.FormatInt(e.now(), 10),
		})
		if err != nil {
			return nil, err
		}
		e.log.Debug("player created", zap.String("user_id", uid))
	}
	fields, err := e.store.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	p := decodePlayer(uid, fields)
	if p == nil {
		return nil, fmt.Errorf("world: player %s vanished during creation", uid)
	}
	return p, nil
}

func (e *Engine) savePlayer(ctx context.Context, p *PlayerProfile) error {
	_, err := e.store.HSet(ctx, playerKey(p.UserID), encodePlayer(p))
	return err
}

// GetPlayer returns the profile for uid, creating it on first contact.
func (e *Engine) GetPlayer(ctx context.Context, userID string) (*PlayerProfile, error) {
	uid, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := e.playerLocks.lock(uid)
	defer unlock()
	return e.loadOrCreatePlayer(ctx, uid)
}

// GetTile returns a single tile, or nil if the coordinate is empty.
func (e *Engine) GetTile(ctx context.Context, q, r int) (*Tile, error) {
	c := hex.Coord{Q: q, R: r}
	if err := validateCoord(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.loadTile(ctx, c)
}

func (e *Engine) chunkOf(c hex.Coord) hex.Chunk {
	return hex.ChunkOf(c, e.cfg.ChunkSize)
}
