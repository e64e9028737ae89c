package world

import (
	"context"
	"math"
	"strconv"

	"hexlands/pkg/hex"
)

// neighborState caches what the alliance-bonus check needs about a
// coordinate during one sweep. A nil entry marks a known-missing tile.
// Ownership and tags do not move during a sweep, so entries stay valid.
type neighborState struct {
	owner string
	tag   string
}

// RunRechargeTick advances every indexed tile to now (unix ms): integrity
// decays, energy regenerates for the seconds integrity stayed positive,
// adjacent same-alliance territory adds its bonus, and the generated energy
// accrues to the owners once the sweep completes.
func (e *Engine) RunRechargeTick(ctx context.Context, now int64) (TickStats, error) {
	stats := TickStats{Now: now}
	credits := make(map[string]float64)
	cache := make(map[string]*neighborState)

	var cursor uint64
	for {
		members, next, err := e.store.SScan(ctx, keyTilesIndex, cursor, tickScanCount)
		if err != nil {
			return stats, err
		}
		for _, member := range members {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			c, err := hex.ParseKey(member)
			if err != nil {
				continue
			}
			if err := e.rechargeTile(ctx, c, now, credits, cache, &stats); err != nil {
				return stats, err
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	for uid, gain := range credits {
		if gain <= 0 {
			continue
		}
		if err := e.creditPlayer(ctx, uid, gain, now); err != nil {
			return stats, err
		}
		stats.OwnersCredited++
		stats.EnergyGranted += gain
	}
	stats.EnergyGranted = round4(stats.EnergyGranted)
	return stats, nil
}

func (e *Engine) rechargeTile(ctx context.Context, c hex.Coord, now int64, credits map[string]float64, cache map[string]*neighborState, stats *TickStats) error {
	unlock := e.tileLocks.lock(c.Key())
	defer unlock()

	tile, err := e.loadTile(ctx, c)
	if err != nil {
		return err
	}
	if tile == nil {
		cache[c.Key()] = nil
		return nil
	}
	stats.Scanned++
	cache[c.Key()] = &neighborState{owner: tile.OwnerID, tag: tile.AllianceTag}

	elapsed := now - tile.LastUpdate
	if elapsed <= 0 {
		return nil
	}

	decay := e.cfg.IntegrityDecayPerMinute
	loss := float64(elapsed) / 60000.0 * decay
	nextIntegrity := clamp(tile.Integrity-loss, 0, maxIntegrity)

	// Seconds of the window the tile still had integrity: pre-decay
	// integrity over the decay rate, capped at the elapsed window.
	var activeSeconds float64
	if decay == 0 {
		activeSeconds = float64(elapsed) / 1000.0
	} else {
		activeSeconds = math.Min(float64(elapsed)/1000.0, math.Max(0, tile.Integrity/decay*60))
	}

	bonus := 1.0
	if tile.OwnerID != "" && tile.AllianceTag != "" {
		allied, err := e.hasAlliedNeighbor(ctx, tile, cache)
		if err != nil {
			return err
		}
		if allied {
			bonus = e.cfg.AllianceNeighborBonus
		}
	}

	generated := activeSeconds * e.cfg.EnergyRechargePerSecond * bonus

	tile.Energy = clamp(tile.Energy+generated, 0, e.cfg.MaxTileEnergy)
	tile.Integrity = nextIntegrity
	tile.LastUpdate = now
	if err := e.saveTile(ctx, tile); err != nil {
		return err
	}
	stats.Updated++

	if tile.OwnerID != "" && generated > 0 {
		credits[tile.OwnerID] += generated
	}
	return nil
}

// hasAlliedNeighbor reports whether any of the six neighbors is owned by a
// different player carrying the same alliance tag. Neighbor reads go
// through the per-sweep cache.
func (e *Engine) hasAlliedNeighbor(ctx context.Context, tile *Tile, cache map[string]*neighborState) (bool, error) {
	var nb [6]hex.Coord
	tile.Coord.Neighbors(&nb)
	for _, n := range nb {
		state, seen := cache[n.Key()]
		if !seen {
			other, err := e.loadTile(ctx, n)
			if err != nil {
				return false, err
			}
			if other != nil {
				state = &neighborState{owner: other.OwnerID, tag: other.AllianceTag}
			}
			cache[n.Key()] = state
		}
		if state != nil && state.owner != "" && state.owner != tile.OwnerID && state.tag == tile.AllianceTag {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) creditPlayer(ctx context.Context, uid string, gain float64, now int64) error {
	unlock := e.playerLocks.lock(uid)
	defer unlock()

	player, err := e.loadOrCreatePlayer(ctx, uid)
	if err != nil {
		return err
	}
	player.Energy = clamp(player.Energy+gain, 0, e.cfg.MaxPlayerEnergy)
	player.LastUpdate = now
	return e.savePlayer(ctx, player)
}

// DecayActivity halves every chunk activity counter, dropping the fields
// that reach zero so the hash stays bounded. Runs on its own cadence inside
// the recharge loop.
func (e *Engine) DecayActivity(ctx context.Context) (kept, dropped int, err error) {
	fields, err := e.store.HGetAll(ctx, keyChunkActivity)
	if err != nil {
		return 0, 0, err
	}
	updates := make(map[string]string)
	var drop []string
	for field, raw := range fields {
		count, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || count <= 1 {
			drop = append(drop, field)
			continue
		}
		updates[field] = strconv.FormatInt(count/2, 10)
	}
	if len(updates) > 0 {
		if _, err := e.store.HSet(ctx, keyChunkActivity, updates); err != nil {
			return 0, 0, err
		}
	}
	if len(drop) > 0 {
		if _, err := e.store.HDel(ctx, keyChunkActivity, drop...); err != nil {
			return 0, 0, err
		}
	}
	return len(updates), len(drop), nil
}
