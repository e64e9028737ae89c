package world

// Config carries every tunable of the engine. Zero values are meaningful
// (a decay rate of 0 disables decay), so callers start from DefaultConfig
// and override rather than relying on fill-in.
type Config struct {
	ChunkSize int `yaml:"chunk_size"`

	MaxTileEnergy        float64 `yaml:"max_tile_energy"`
	MaxPlayerEnergy      float64 `yaml:"max_player_energy"`
	InitialTileEnergy    float64 `yaml:"initial_tile_energy"`
	InitialTileIntegrity float64 `yaml:"initial_tile_integrity"`
	InitialTileLevel     int     `yaml:"initial_tile_level"`
	InitialPlayerEnergy  float64 `yaml:"initial_player_energy"`

	EnergyRechargePerSecond float64 `yaml:"energy_recharge_per_second"`
	IntegrityDecayPerMinute float64 `yaml:"integrity_decay_per_minute"`

	FreeClaimCost              float64 `yaml:"free_claim_cost"`
	HostileClaimCostMultiplier float64 `yaml:"hostile_claim_cost_multiplier"`
	RepairCostEnergy           float64 `yaml:"repair_cost_energy"`
	RepairIntegrityGain        float64 `yaml:"repair_integrity_gain"`
	MaxClaimDistanceFromOwned  int     `yaml:"max_claim_distance_from_owned"`

	AllianceNeighborBonus float64 `yaml:"alliance_neighbor_bonus_multiplier"`

	MaxLeaderboardEntries int `yaml:"max_leaderboard_entries"`
	MaxRadarNexusPoints   int `yaml:"max_radar_nexus_points"`
	MaxRadarBasePoints    int `yaml:"max_radar_base_points"`
	MaxRadarHotspots      int `yaml:"max_radar_hotspots"`

	RechargeIntervalMs      int `yaml:"recharge_interval_ms"`
	SnapshotIntervalMs      int `yaml:"snapshot_interval_ms"`
	SnapshotBatchSize       int `yaml:"snapshot_batch_size"`
	ActivityDecayIntervalMs int `yaml:"activity_decay_interval_ms"`
	ArchiveEveryFlushes     int `yaml:"archive_every_flushes"`
}

// DefaultConfig returns the stock game balance.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 64,

		MaxTileEnergy:        100,
		MaxPlayerEnergy:      1000,
		InitialTileEnergy:    100,
		InitialTileIntegrity: 100,
		InitialTileLevel:     1,
		InitialPlayerEnergy:  100,

		EnergyRechargePerSecond: 1,
		IntegrityDecayPerMinute: 1,

		FreeClaimCost:              10,
		HostileClaimCostMultiplier: 50,
		RepairCostEnergy:           5,
		RepairIntegrityGain:        20,
		MaxClaimDistanceFromOwned:  8,

		AllianceNeighborBonus: 1.05,

		MaxLeaderboardEntries: 10,
		MaxRadarNexusPoints:   64,
		MaxRadarBasePoints:    64,
		MaxRadarHotspots:      32,

		RechargeIntervalMs:      1000,
		SnapshotIntervalMs:      300000,
		SnapshotBatchSize:       1000,
		ActivityDecayIntervalMs: 600000,
		ArchiveEveryFlushes:     12,
	}
}
