package world

import "hexlands/pkg/hex"

// Key layout in the KV store. The tile hash is authoritative; everything
// else is a derived index maintained by the engine.
const (
	keyTilesIndex    = "tiles:index"
	keyPOIIndex      = "poi:index"
	keyLeaderboard   = "leaderboard:tiles"
	keyChunkActivity = "chunk:activity"
)

func tileKey(c hex.Coord) string { return "tile:" + c.Key() }

func playerKey(uid string) string { return "player:" + uid }

func ownerTilesKey(uid string) string { return "owner:" + uid + ":tiles" }

func chunkTilesKey(ch hex.Chunk) string { return "chunk:" + ch.Key() + ":tiles" }
