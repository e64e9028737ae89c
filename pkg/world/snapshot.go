package world

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"hexlands/pkg/hex"
)

// FlushSnapshots streams the tile index to the snapshot sink in batches of
// cfg.SnapshotBatchSize and returns the number of rows handed over. Every
// cfg.ArchiveEveryFlushes flushes, the full tile set also goes to the
// Archiver when one is wired.
func (e *Engine) FlushSnapshots(ctx context.Context) (int, error) {
	if e.sink == nil {
		return 0, nil
	}

	flushNo := atomic.AddInt64(&e.flushes, 1)
	archiveDue := e.Archiver != nil &&
		e.cfg.ArchiveEveryFlushes > 0 &&
		flushNo%int64(e.cfg.ArchiveEveryFlushes) == 0

	batchSize := e.cfg.SnapshotBatchSize
	batch := make([]Tile, 0, batchSize)
	var archive []Tile
	total := 0

	var cursor uint64
	for {
		members, next, err := e.store.SScan(ctx, keyTilesIndex, cursor, int64(batchSize))
		if err != nil {
			return total, err
		}
		for _, member := range members {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			c, err := hex.ParseKey(member)
			if err != nil {
				continue
			}
			tile, err := e.loadTile(ctx, c)
			if err != nil {
				return total, err
			}
			if tile == nil {
				continue
			}
			batch = append(batch, *tile)
			if archiveDue {
				archive = append(archive, *tile)
			}
			if len(batch) >= batchSize {
				if err := e.sink.UpsertTiles(ctx, batch); err != nil {
					return total, fmt.Errorf("upsert batch: %w", err)
				}
				total += len(batch)
				batch = batch[:0]
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	if len(batch) > 0 {
		if err := e.sink.UpsertTiles(ctx, batch); err != nil {
			return total, fmt.Errorf("upsert batch: %w", err)
		}
		total += len(batch)
	}

	if archiveDue {
		if err := e.Archiver.ArchiveWorld(ctx, e.now(), archive); err != nil {
			return total, fmt.Errorf("archive world: %w", err)
		}
	}

	e.log.Debug("snapshot flushed", zap.Int("tiles", total), zap.Bool("archived", archiveDue))
	return total, nil
}
