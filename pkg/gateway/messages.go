package gateway

import (
	"encoding/json"

	"hexlands/pkg/hex"
	"hexlands/pkg/world"
)

// Client-to-server action types.
const (
	ActionClaim       = "claim"
	ActionRepair      = "repair"
	ActionView        = "view"
	ActionRadar       = "radar"
	ActionLeaderboard = "leaderboard"
	ActionAlliance    = "set_alliance"
	ActionProfile     = "profile"
	ActionPing        = "ping"
)

// Server-to-client frame types.
const (
	TypeWelcome      = "welcome"
	TypeClaimResult  = "claim_result"
	TypeRepairResult = "repair_result"
	TypeTiles        = "tiles"
	TypeRadar        = "radar"
	TypeLeaderboard  = "leaderboard"
	TypeProfile      = "profile"
	TypeTileUpdate   = "tile_update"
	TypeRateLimited  = "rate_limited"
	TypeError        = "error"
	TypePong         = "pong"
)

// Envelope is the wire frame in both directions: a type tag and a payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type coordRequest struct {
	Q int `json:"q"`
	R int `json:"r"`
}

type viewRequest struct {
	Q      int `json:"q"`
	R      int `json:"r"`
	Radius int `json:"radius"`
}

type leaderboardRequest struct {
	Limit int `json:"limit"`
}

type allianceRequest struct {
	Tag string `json:"tag"`
}

type welcomePayload struct {
	SessionID string               `json:"session_id"`
	Player    *world.PlayerProfile `json:"player"`
}

type tilesPayload struct {
	Center hex.Coord    `json:"center"`
	Radius int          `json:"radius"`
	Tiles  []world.Tile `json:"tiles"`
}

type leaderboardPayload struct {
	Entries []world.LeaderboardEntry `json:"entries"`
}

// tileUpdatePayload fans a committed action out to everyone watching the
// tile's chunk.
type tileUpdatePayload struct {
	Action  string      `json:"action"`
	ActorID string      `json:"actor_id"`
	Tile    *world.Tile `json:"tile"`
}

type rateLimitedPayload struct {
	Action string `json:"action"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// encodeFrame marshals a payload into its envelope.
func encodeFrame(frameType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Data: data})
}
