package world

import (
	"context"

	"go.uber.org/zap"

	"hexlands/pkg/hex"
)

// Chunk activity weights per event type.
var activityWeights = map[string]int64{
	"claim":   1,
	"capture": 3,
	"repair":  2,
}

// Claim attempts to take the tile at (q, r) for userID. Rules run in order:
// self-claim short-circuits as a free success, then the range gate, then the
// cost and spend gates, then the commit. Rule failures come back as
// statuses, not errors.
func (e *Engine) Claim(ctx context.Context, userID string, q, r int) (*ClaimResult, error) {
	uid, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	target := hex.Coord{Q: q, R: r}
	if err := validateCoord(target); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlockTile := e.tileLocks.lock(target.Key())
	defer unlockTile()

	tile, err := e.loadTile(ctx, target)
	if err != nil {
		return nil, err
	}

	prevOwner := ""
	if tile != nil {
		prevOwner = tile.OwnerID
	}

	var unlockPlayers func()
	if prevOwner != "" && prevOwner != uid {
		unlockPlayers = e.playerLocks.lockMany(uid, prevOwner)
	} else {
		unlockPlayers = e.playerLocks.lockMany(uid)
	}
	defer unlockPlayers()

	player, err := e.loadOrCreatePlayer(ctx, uid)
	if err != nil {
		return nil, err
	}

	// Already ours: free success, nothing moves.
	if tile != nil && tile.OwnerID == uid {
		return &ClaimResult{
			Status:      StatusOK,
			ActorID:     uid,
			Tile:        tile,
			Chunk:       e.chunkOf(target),
			EnergyAfter: player.Energy,
		}, nil
	}

	// Range gate. A player with no territory claims anywhere.
	owned, err := e.store.SMembers(ctx, ownerTilesKey(uid))
	if err != nil {
		return nil, err
	}
	if len(owned) > 0 {
		nearest := -1
		for _, member := range owned {
			c, err := hex.ParseKey(member)
			if err != nil {
				continue
			}
			if d := hex.Distance(target, c); nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest >= 0 && nearest > e.cfg.MaxClaimDistanceFromOwned {
			return &ClaimResult{
				Status:          StatusOutOfRange,
				ActorID:         uid,
				NearestDistance: &nearest,
				MaxDistance:     e.cfg.MaxClaimDistanceFromOwned,
			}, nil
		}
	}

	// Cost. Hostile captures scale with the defender's tile level.
	captured := tile != nil && prevOwner != ""
	cost := e.cfg.FreeClaimCost
	if captured {
		cost = float64(tile.Level) * e.cfg.HostileClaimCostMultiplier
	}

	if player.Energy < cost {
		return &ClaimResult{
			Status:         StatusInsufficientEnergy,
			ActorID:        uid,
			RequiredEnergy: cost,
			PlayerEnergy:   player.Energy,
		}, nil
	}

	// Commit.
	now := e.now()
	player.Energy = round4(player.Energy - cost)
	player.LastUpdate = now
	if err := e.savePlayer(ctx, player); err != nil {
		return nil, err
	}

	created := tile == nil
	if created {
		tile = &Tile{
			Coord:     target,
			Energy:    e.cfg.InitialTileEnergy,
			Integrity: e.cfg.InitialTileIntegrity,
			Level:     e.cfg.InitialTileLevel,
			Type:      TileNormal,
		}
	}
	tile.OwnerID = uid
	tile.AllianceTag = player.AllianceTag
	tile.AllianceColor = player.AllianceColor
	tile.LastUpdate = now
	if err := e.saveTile(ctx, tile); err != nil {
		return nil, err
	}

	key := target.Key()
	chunk := e.chunkOf(target)
	if _, err := e.store.SAdd(ctx, keyTilesIndex, key); err != nil {
		return nil, err
	}
	if _, err := e.store.SAdd(ctx, chunkTilesKey(chunk), key); err != nil {
		return nil, err
	}
	if _, err := e.store.SAdd(ctx, ownerTilesKey(uid), key); err != nil {
		return nil, err
	}

	if captured {
		if _, err := e.store.SRem(ctx, ownerTilesKey(prevOwner), key); err != nil {
			return nil, err
		}
		if err := e.decrementScore(ctx, prevOwner); err != nil {
			return nil, err
		}
	}
	// Any commit that reaches here gains exactly one tile for the claimer:
	// creation, capture, or an existing unowned tile. Credited once.
	if _, err := e.store.ZIncrBy(ctx, keyLeaderboard, 1, uid); err != nil {
		return nil, err
	}

	weight := activityWeights["claim"]
	if captured {
		weight = activityWeights["capture"]
	}
	if _, err := e.store.HIncrBy(ctx, keyChunkActivity, chunk.Key(), weight); err != nil {
		return nil, err
	}

	e.log.Debug("tile claimed",
		zap.String("user_id", uid),
		zap.String("coord", key),
		zap.Bool("created", created),
		zap.Bool("captured", captured),
		zap.Float64("cost", cost))

	return &ClaimResult{
		Status:      StatusOK,
		ActorID:     uid,
		Created:     created,
		Captured:    captured,
		Tile:        tile,
		Chunk:       chunk,
		EnergyAfter: player.Energy,
		EnergyCost:  cost,
	}, nil
}

// decrementScore takes one point from uid, clamping the score at zero. The
// clamp covers scores that drifted below reality; a zset increment cannot
// go negative on our watch.
func (e *Engine) decrementScore(ctx context.Context, uid string) error {
	score, err := e.store.ZIncrBy(ctx, keyLeaderboard, -1, uid)
	if err != nil {
		return err
	}
	if score < 0 {
		if _, err := e.store.ZIncrBy(ctx, keyLeaderboard, -score, uid); err != nil {
			return err
		}
	}
	return nil
}

// Repair spends energy to restore integrity on a tile the player owns.
func (e *Engine) Repair(ctx context.Context, userID string, q, r int) (*RepairResult, error) {
	uid, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	target := hex.Coord{Q: q, R: r}
	if err := validateCoord(target); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlockTile := e.tileLocks.lock(target.Key())
	defer unlockTile()

	tile, err := e.loadTile(ctx, target)
	if err != nil {
		return nil, err
	}
	if tile == nil {
		return &RepairResult{Status: StatusTileNotFound, ActorID: uid}, nil
	}
	if tile.OwnerID != uid {
		return &RepairResult{Status: StatusNotOwner, ActorID: uid}, nil
	}

	unlockPlayer := e.playerLocks.lock(uid)
	defer unlockPlayer()

	player, err := e.loadOrCreatePlayer(ctx, uid)
	if err != nil {
		return nil, err
	}
	cost := e.cfg.RepairCostEnergy
	if player.Energy < cost {
		return &RepairResult{
			Status:         StatusInsufficientEnergy,
			ActorID:        uid,
			RequiredEnergy: cost,
			PlayerEnergy:   player.Energy,
		}, nil
	}

	now := e.now()
	player.Energy = round4(player.Energy - cost)
	player.LastUpdate = now
	if err := e.savePlayer(ctx, player); err != nil {
		return nil, err
	}

	tile.Integrity = clamp(tile.Integrity+e.cfg.RepairIntegrityGain, 0, maxIntegrity)
	tile.LastUpdate = now
	if err := e.saveTile(ctx, tile); err != nil {
		return nil, err
	}

	chunk := e.chunkOf(target)
	if _, err := e.store.HIncrBy(ctx, keyChunkActivity, chunk.Key(), activityWeights["repair"]); err != nil {
		return nil, err
	}

	return &RepairResult{
		Status:      StatusOK,
		ActorID:     uid,
		Tile:        tile,
		Chunk:       chunk,
		EnergyAfter: player.Energy,
		EnergyCost:  cost,
	}, nil
}
