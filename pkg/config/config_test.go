package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/wal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsStandaloneWithSaneDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, wal.RoleStandalone, cfg.Replication.Role)
	assert.Equal(t, wal.ModeAsync, cfg.Replication.Mode)
	assert.Equal(t, wal.DefaultReplicationPort, cfg.Replication.Port)
	assert.Greater(t, cfg.PlanCache.MaxEntries, 0)
	assert.Greater(t, cfg.Query.TimeoutMs, 0)
}

func TestLoadOverridesDefaultsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexus.yaml")
	yaml := []byte("data_dir: /var/lib/nexus\nreplication:\n  role: master\n  port: 9999\nquery:\n  timeout_ms: 5000\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/nexus", cfg.DataDir)
	assert.Equal(t, wal.RoleMaster, cfg.Replication.Role)
	assert.Equal(t, 9999, cfg.Replication.Port)
	assert.Equal(t, 5000, cfg.Query.TimeoutMs)
	// Fields the override file never mentions keep Default()'s values.
	assert.Equal(t, wal.ModeAsync, cfg.Replication.Mode)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(underlyingErr(err)))
}

// underlyingErr unwraps Load's fmt.Errorf("read config %s: %w", ...) wrap,
// the same way cmd/nexus does, to assert on the raw os error beneath it.
func underlyingErr(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
