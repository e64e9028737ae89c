package world

import (
	"context"

	"go.uber.org/zap"

	"hexlands/pkg/hex"
)

// RegisterNexus creates or upgrades a nexus tile and indexes it as a POI.
// Fresh nexuses start unowned; captures later follow normal claim rules and
// the tile keeps its type.
func (e *Engine) RegisterNexus(ctx context.Context, q, r, level int) (*Tile, error) {
	target := hex.Coord{Q: q, R: r}
	if err := validateCoord(target); err != nil {
		return nil, err
	}
	if level < 1 {
		return nil, ErrInvalidLevel
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := e.tileLocks.lock(target.Key())
	defer unlock()

	tile, err := e.loadTile(ctx, target)
	if err != nil {
		return nil, err
	}

	now := e.now()
	key := target.Key()
	if tile == nil {
		tile = &Tile{
			Coord:      target,
			Energy:     e.cfg.InitialTileEnergy,
			Integrity:  e.cfg.InitialTileIntegrity,
			Level:      level,
			Type:       TileNexus,
			LastUpdate: now,
		}
		if _, err := e.store.SAdd(ctx, keyTilesIndex, key); err != nil {
			return nil, err
		}
		if _, err := e.store.SAdd(ctx, chunkTilesKey(e.chunkOf(target)), key); err != nil {
			return nil, err
		}
	} else {
		tile.Type = TileNexus
		tile.Level = level
		tile.LastUpdate = now
	}
	if err := e.saveTile(ctx, tile); err != nil {
		return nil, err
	}
	if _, err := e.store.SAdd(ctx, keyPOIIndex, key); err != nil {
		return nil, err
	}

	e.log.Info("nexus registered", zap.String("coord", key), zap.Int("level", level))
	return tile, nil
}
