package world

import (
	"math"
	"strconv"

	"hexlands/pkg/hex"
)

// Tile types.
const (
	TileNormal = "normal"
	TileNexus  = "nexus"
)

const maxIntegrity = 100.0

// Tile is the authoritative record of one hex. Empty owner and alliance
// strings stand in for null: the KV hash stores them as empty fields and the
// relational sink maps them to NULL columns.
type Tile struct {
	Coord         hex.Coord `json:"coord"`
	OwnerID       string    `json:"owner_id,omitempty"`
	AllianceTag   string    `json:"owner_alliance_tag,omitempty"`
	AllianceColor string    `json:"owner_alliance_color,omitempty"`
	Energy        float64   `json:"energy"`
	Integrity     float64   `json:"integrity"`
	Level         int       `json:"level"`
	Type          string    `json:"tile_type"`
	LastUpdate    int64     `json:"last_update"`
}

// PlayerProfile is the per-player record, lazily created on first contact.
type PlayerProfile struct {
	UserID        string  `json:"user_id"`
	DisplayName   string  `json:"display_name"`
	AllianceTag   string  `json:"alliance_tag,omitempty"`
	AllianceColor string  `json:"alliance_color,omitempty"`
	Energy        float64 `json:"energy"`
	LastUpdate    int64   `json:"last_update"`
}

// Hash field names shared by tile and player records.
const (
	fieldOwnerID       = "owner_id"
	fieldAllianceTag   = "owner_alliance_tag"
	fieldAllianceColor = "owner_alliance_color"
	fieldEnergy        = "energy"
	fieldIntegrity     = "integrity"
	fieldLevel         = "level"
	fieldTileType      = "tile_type"
	fieldLastUpdate    = "last_update"

	fieldDisplayName      = "display_name"
	fieldPlayerTag        = "alliance_tag"
	fieldPlayerColor      = "alliance_color"
	fieldPlayerEnergy     = "energy"
	fieldPlayerLastUpdate = "last_update"
)

func encodeTile(t *Tile) map[string]string {
	return map[string]string{
		fieldOwnerID:       t.OwnerID,
		fieldAllianceTag:   t.AllianceTag,
		fieldAllianceColor: t.AllianceColor,
		fieldEnergy:        formatFloat(t.Energy),
		fieldIntegrity:     formatFloat(t.Integrity),
		fieldLevel:         strconv.Itoa(t.Level),
		fieldTileType:      t.Type,
		fieldLastUpdate:    strconv.FormatInt(t.LastUpdate, 10),
	}
}

func decodeTile(c hex.Coord, fields map[string]string) *Tile {
	if len(fields) == 0 {
		return nil
	}
	t := &Tile{
		Coord:         c,
		OwnerID:       fields[fieldOwnerID],
		AllianceTag:   fields[fieldAllianceTag],
		AllianceColor: fields[fieldAllianceColor],
		Energy:        parseFloat(fields[fieldEnergy], 0),
		Integrity:     parseFloat(fields[fieldIntegrity], 0),
		Level:         parseInt(fields[fieldLevel], 1),
		Type:          fields[fieldTileType],
		LastUpdate:    parseInt64(fields[fieldLastUpdate], 0),
	}
	if t.Type == "" {
		t.Type = TileNormal
	}
	return t
}

func encodePlayer(p *PlayerProfile) map[string]string {
	return map[string]string{
		fieldDisplayName:      p.DisplayName,
		fieldPlayerTag:        p.AllianceTag,
		fieldPlayerColor:      p.AllianceColor,
		fieldPlayerEnergy:     formatFloat(p.Energy),
		fieldPlayerLastUpdate: strconv.FormatInt(p.LastUpdate, 10),
	}
}

func decodePlayer(uid string, fields map[string]string) *PlayerProfile {
	if len(fields) == 0 {
		return nil
	}
	p := &PlayerProfile{
		UserID:        uid,
		DisplayName:   fields[fieldDisplayName],
		AllianceTag:   fields[fieldPlayerTag],
		AllianceColor: fields[fieldPlayerColor],
		Energy:        parseFloat(fields[fieldPlayerEnergy], 0),
		LastUpdate:    parseInt64(fields[fieldPlayerLastUpdate], 0),
	}
	if p.DisplayName == "" {
		p.DisplayName = uid
	}
	return p
}

// round4 stabilizes stored numerics so round-trips through string encoding
// compare cleanly.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(round4(v), 'f', -1, 64)
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
