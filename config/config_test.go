package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: 9090
auth:
  signing_key: secret
  issuer: attendance
reader:
  enabled: true
  device: /dev/rfid0
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Auth.SigningKey)
	assert.True(t, cfg.Reader.Enabled)

	// Everything left unset falls back to defaults.
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Reader.Cooldown)
	assert.Equal(t, 300*time.Millisecond, cfg.Reader.PollInterval)
	assert.Equal(t, time.Minute, cfg.Scheduler.Tick)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyDefaultsDerivesDurations(t *testing.T) {
	cfg := &Config{}
	cfg.Reader.CooldownSeconds = 5
	cfg.Scheduler.TickSeconds = 30
	cfg.ApplyDefaults()

	assert.Equal(t, 5*time.Second, cfg.Reader.Cooldown)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Tick)
}
