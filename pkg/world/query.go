package world

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"hexlands/pkg/hex"
)

const maxLeaderboardLimit = 100

// TilesInRange returns every existing tile within radius of the center,
// sorted by distance, then q, then r. Candidates come from the chunk sets
// covering the bounding box, so the cost scales with the viewport rather
// than the world.
func (e *Engine) TilesInRange(ctx context.Context, centerQ, centerR, radius int) ([]Tile, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	center := hex.Coord{Q: centerQ, R: centerR}
	if err := validateCoord(center); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lo := hex.ChunkOf(hex.Coord{Q: centerQ - radius, R: centerR - radius}, e.cfg.ChunkSize)
	hi := hex.ChunkOf(hex.Coord{Q: centerQ + radius, R: centerR + radius}, e.cfg.ChunkSize)

	type candidate struct {
		coord hex.Coord
		dist  int
	}
	var cands []candidate
	for cq := lo.Q; cq <= hi.Q; cq++ {
		for cr := lo.R; cr <= hi.R; cr++ {
			members, err := e.store.SMembers(ctx, chunkTilesKey(hex.Chunk{Q: cq, R: cr}))
			if err != nil {
				return nil, err
			}
			for _, member := range members {
				c, err := hex.ParseKey(member)
				if err != nil {
					continue
				}
				if d := hex.Distance(center, c); d <= radius {
					cands = append(cands, candidate{coord: c, dist: d})
				}
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].coord.Q != cands[j].coord.Q {
			return cands[i].coord.Q < cands[j].coord.Q
		}
		return cands[i].coord.R < cands[j].coord.R
	})

	tiles := make([]Tile, 0, len(cands))
	for _, cand := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tile, err := e.loadTile(ctx, cand.coord)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			continue
		}
		tiles = append(tiles, *tile)
	}
	return tiles, nil
}

// RadarSummary builds the long-range view: the player's own bases, nexus
// POIs, and activity hotspots, each list capped by config.
func (e *Engine) RadarSummary(ctx context.Context, userID string, centerQ, centerR, radius int) (*RadarData, error) {
	uid, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	center := hex.Coord{Q: centerQ, R: centerR}
	if err := validateCoord(center); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := &RadarData{
		Center:      center,
		Radius:      radius,
		PlayerBases: []hex.Coord{},
		NexusCores:  []NexusPoint{},
		Hotspots:    []Hotspot{},
	}

	// Own bases, in set order, stopping at the cap.
	owned, err := e.store.SMembers(ctx, ownerTilesKey(uid))
	if err != nil {
		return nil, err
	}
	for _, member := range owned {
		c, err := hex.ParseKey(member)
		if err != nil {
			continue
		}
		if hex.Distance(center, c) > radius {
			continue
		}
		data.PlayerBases = append(data.PlayerBases, c)
		if len(data.PlayerBases) >= e.cfg.MaxRadarBasePoints {
			break
		}
	}

	// Nexus POIs in range, carrying level.
	pois, err := e.store.SMembers(ctx, keyPOIIndex)
	if err != nil {
		return nil, err
	}
	for _, member := range pois {
		c, err := hex.ParseKey(member)
		if err != nil {
			continue
		}
		if hex.Distance(center, c) > radius {
			continue
		}
		tile, err := e.loadTile(ctx, c)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			continue
		}
		data.NexusCores = append(data.NexusCores, NexusPoint{Q: c.Q, R: c.R, Level: tile.Level})
		if len(data.NexusCores) >= e.cfg.MaxRadarNexusPoints {
			break
		}
	}

	// Hotspots: chunks with positive activity whose center falls inside the
	// radar sweep, padded by one chunk so edge chunks still show.
	activity, err := e.store.HGetAll(ctx, keyChunkActivity)
	if err != nil {
		return nil, err
	}
	for field, raw := range activity {
		ch, err := hex.ParseChunkKey(field)
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		chunkCenter := ch.Center(e.cfg.ChunkSize)
		if hex.Distance(center, chunkCenter) > radius+e.cfg.ChunkSize {
			continue
		}
		data.Hotspots = append(data.Hotspots, Hotspot{Q: chunkCenter.Q, R: chunkCenter.R, Activity: count})
	}
	sort.Slice(data.Hotspots, func(i, j int) bool {
		if data.Hotspots[i].Activity != data.Hotspots[j].Activity {
			return data.Hotspots[i].Activity > data.Hotspots[j].Activity
		}
		if data.Hotspots[i].Q != data.Hotspots[j].Q {
			return data.Hotspots[i].Q < data.Hotspots[j].Q
		}
		return data.Hotspots[i].R < data.Hotspots[j].R
	})
	if len(data.Hotspots) > e.cfg.MaxRadarHotspots {
		data.Hotspots = data.Hotspots[:e.cfg.MaxRadarHotspots]
	}

	return data, nil
}

// Leaderboard returns the top players by owned-tile count. The limit clamps
// to [1, 100]; blank members and non-positive scores are dropped.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked, err := e.store.ZRangeWithScores(ctx, keyLeaderboard, 0, int64(limit-1), true)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for _, member := range ranked {
		uid := strings.TrimSpace(member.Member)
		if uid == "" || member.Score <= 0 {
			continue
		}
		entry := LeaderboardEntry{
			UserID:      uid,
			DisplayName: uid,
			Score:       int64(math.Floor(member.Score)),
		}
		profile, err := e.loadPlayer(ctx, uid)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			entry.DisplayName = profile.DisplayName
			entry.AllianceTag = profile.AllianceTag
			entry.AllianceColor = profile.AllianceColor
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
