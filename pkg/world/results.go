package world

import "hexlands/pkg/hex"

// ActionStatus tags the outcome of a claim or repair. Rule failures travel
// on the success path; only programmer and store errors become Go errors.
type ActionStatus string

const (
	StatusOK                 ActionStatus = "ok"
	StatusOutOfRange         ActionStatus = "out-of-range"
	StatusInsufficientEnergy ActionStatus = "insufficient-energy"
	StatusTileNotFound       ActionStatus = "tile-not-found"
	StatusNotOwner           ActionStatus = "not-owner"
)

// ClaimResult describes one claim attempt. On success Tile holds the
// post-claim state and Chunk the bucket to fan the update out to. The
// failure variants fill only their own fields.
type ClaimResult struct {
	Status   ActionStatus `json:"status"`
	ActorID  string       `json:"actor_id"`
	Created  bool         `json:"created"`
	Captured bool         `json:"captured"`

	Tile        *Tile     `json:"tile,omitempty"`
	Chunk       hex.Chunk `json:"chunk"`
	EnergyAfter float64   `json:"energy_after"`
	EnergyCost  float64   `json:"energy_cost"`

	// insufficient-energy
	RequiredEnergy float64 `json:"required_energy,omitempty"`
	PlayerEnergy   float64 `json:"player_energy,omitempty"`

	// out-of-range
	NearestDistance *int `json:"nearest_distance,omitempty"`
	MaxDistance     int  `json:"max_distance,omitempty"`
}

// OK reports whether the action committed.
func (r *ClaimResult) OK() bool { return r.Status == StatusOK }

// RepairResult describes one repair attempt.
type RepairResult struct {
	Status  ActionStatus `json:"status"`
	ActorID string       `json:"actor_id"`

	Tile        *Tile     `json:"tile,omitempty"`
	Chunk       hex.Chunk `json:"chunk"`
	EnergyAfter float64   `json:"energy_after"`
	EnergyCost  float64   `json:"energy_cost"`

	RequiredEnergy float64 `json:"required_energy,omitempty"`
	PlayerEnergy   float64 `json:"player_energy,omitempty"`
}

// OK reports whether the action committed.
func (r *RepairResult) OK() bool { return r.Status == StatusOK }

// NexusPoint is a radar POI.
type NexusPoint struct {
	Q     int `json:"q"`
	R     int `json:"r"`
	Level int `json:"level"`
}

// Hotspot is a chunk center with recent activity.
type Hotspot struct {
	Q        int   `json:"q"`
	R        int   `json:"r"`
	Activity int64 `json:"activity"`
}

// RadarData is the long-range view around a center coordinate.
type RadarData struct {
	Center      hex.Coord    `json:"center"`
	Radius      int          `json:"radius"`
	PlayerBases []hex.Coord  `json:"player_bases"`
	NexusCores  []NexusPoint `json:"nexus_cores"`
	Hotspots    []Hotspot    `json:"hotspots"`
}

// LeaderboardEntry is one row of the tile-count ranking.
type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	AllianceTag   string `json:"alliance_tag,omitempty"`
	AllianceColor string `json:"alliance_color,omitempty"`
	Score         int64  `json:"score"`
}

// TickStats summarizes one recharge sweep.
type TickStats struct {
	Now            int64   `json:"now"`
	Scanned        int     `json:"scanned"`
	Updated        int     `json:"updated"`
	OwnersCredited int     `json:"owners_credited"`
	EnergyGranted  float64 `json:"energy_granted"`
}
