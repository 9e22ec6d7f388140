// Package config loads Nexus's on-disk configuration: plain structs with
// yaml tags plus a Load/Default pair, the same struct-plus-loader shape
// the teacher uses for its own settings, without a cobra flag layer on top.
package config

import (
	"fmt"
	"os"

	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/wal"
	"gopkg.in/yaml.v3"
)

// Replication configures the WAL master/replica topology.
type Replication struct {
	Role          wal.Role `yaml:"role"`
	Mode          wal.Mode `yaml:"mode"`
	Port          int      `yaml:"port"`
	MasterAddr    string   `yaml:"master_addr"`
	HeartbeatMs   int      `yaml:"heartbeat_ms"`
}

// PlanCache bounds the planner's compiled-plan LRU.
type PlanCache struct {
	MaxEntries int `yaml:"max_entries"`
}

// Query bounds per-query execution.
type Query struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// Logging configures pkg/log.Init.
type Logging struct {
	Level  log.Level `yaml:"level"`
	JSON   bool      `yaml:"json"`
}

// Config is the full on-disk nexus.yaml shape.
type Config struct {
	DataDir     string      `yaml:"data_dir"`
	Replication Replication `yaml:"replication"`
	PlanCache   PlanCache   `yaml:"plan_cache"`
	Query       Query       `yaml:"query"`
	Logging     Logging     `yaml:"logging"`
}

// Default returns the configuration a bare `nexus` standalone process
// starts with if no nexus.yaml is present.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Replication: Replication{
			Role:        wal.RoleStandalone,
			Mode:        wal.ModeAsync,
			Port:        wal.DefaultReplicationPort,
			HeartbeatMs: int(wal.DefaultHeartbeatInterval.Milliseconds()),
		},
		PlanCache: PlanCache{MaxEntries: 256},
		Query:     Query{TimeoutMs: 30_000},
		Logging:   Logging{Level: log.InfoLevel, JSON: false},
	}
}

// Load reads and parses a nexus.yaml file at path, filling any field the
// file omits from Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
