package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pokerstyle.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "localhost:8080", cfg.Address())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMergesBlocks(t *testing.T) {
	path := writeConfig(t, `
server {
  port          = 9090
  poll_interval = "500ms"
}

store {
  driver = "sqlite"
  path   = "/tmp/pokerstyle.db"
}

game {
  target_hands       = 15
  hand_count_options = [5, 15]
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:9090", cfg.Address())
	poll, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, poll)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 15, cfg.Game.TargetHands)
	assert.Equal(t, 3, cfg.Game.MinHands)
	assert.Equal(t, []int{5, 15}, cfg.Game.HandCountOptions)
	assert.Equal(t, GeneratorOffline, cfg.Diagnosis.Generator)

	timeout, err := cfg.DiagnosisTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, timeout)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `server { port = `))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `server { unknown = 1 }`))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"bad poll interval", func(c *Config) { c.Server.PollInterval = "soon" }, "poll_interval"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, "unknown store driver"},
		{"file without path", func(c *Config) { c.Store.Driver, c.Store.Path = "file", "" }, "path is required"},
		{"unknown generator", func(c *Config) { c.Diagnosis.Generator = "magic" }, "unknown diagnosis generator"},
		{"zero concurrency", func(c *Config) { c.Diagnosis.Concurrency = 0 }, "concurrency"},
		{"target below min", func(c *Config) { c.Game.TargetHands = 2 }, "below"},
		{"unsorted options", func(c *Config) { c.Game.HandCountOptions = []int{10, 5} }, "ascending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
