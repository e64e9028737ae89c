// Package config builds the effective server configuration: compiled
// defaults, overlaid by an optional YAML file, overlaid by a handful of
// HEXLANDS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"hexlands/pkg/gateway"
	"hexlands/pkg/world"
	"hexlands/pkg/worldgen"
)

// ServerConfig is the HTTP listener section.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`
}

// RedisConfig points the engine at its live store. An empty addr runs the
// server on the in-process store instead, which only makes sense for a
// single node.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// DatabaseConfig selects the snapshot sink.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, postgres or none
	Path     string `yaml:"path"`   // sqlite file
	DSN      string `yaml:"dsn"`    // postgres connection string
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// WorldgenConfig controls the startup nexus seeding pass.
type WorldgenConfig struct {
	Enabled          bool `yaml:"enabled"`
	worldgen.Options `yaml:",inline"`
}

// Config is the full configuration tree.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Redis    RedisConfig     `yaml:"redis"`
	Database DatabaseConfig  `yaml:"database"`
	Game     world.Config    `yaml:"game"`
	Gateway  gateway.Options `yaml:"gateway"`
	Worldgen WorldgenConfig  `yaml:"worldgen"`
}

// Default returns what the server boots with when nothing is overridden.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", LogLevel: "info"},
		Redis:    RedisConfig{PoolSize: 16},
		Database: DatabaseConfig{Driver: "sqlite", Path: "hexlands.db", MaxConns: 8, MinConns: 2},
		Game:     world.DefaultConfig(),
		Gateway:  gateway.DefaultOptions(),
		Worldgen: WorldgenConfig{Options: worldgen.DefaultOptions()},
	}
}

// Load builds the effective configuration. An empty path skips the file
// stage and applies environment overrides straight onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv lets deployments override the file without editing it. Only
// the knobs that change between environments get a variable.
func applyEnv(cfg *Config) {
	if v := os.Getenv("HEXLANDS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HEXLANDS_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if os.Getenv("HEXLANDS_DEV") == "true" {
		cfg.Server.Development = true
	}
	if v := os.Getenv("HEXLANDS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HEXLANDS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HEXLANDS_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("HEXLANDS_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("HEXLANDS_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HEXLANDS_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HEXLANDS_WORLDGEN"); v != "" {
		cfg.Worldgen.Enabled = v == "true"
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr is empty")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("config: sqlite database driver needs a path")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("config: postgres database driver needs a dsn")
		}
	case "none", "":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Game.ChunkSize <= 0 {
		return fmt.Errorf("config: game chunk_size must be positive")
	}
	if c.Game.RechargeIntervalMs <= 0 {
		return fmt.Errorf("config: game recharge_interval_ms must be positive")
	}
	return nil
}
