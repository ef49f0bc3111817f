package config

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
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultAgent_Valid(t *testing.T) {
	cfg := DefaultAgent()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6*time.Second, cfg.Reconnect.InitialDelay)
	assert.Equal(t, "/warp exit", cfg.Recovery.WarpCommand)
	assert.Equal(t, 2*time.Minute, cfg.PingInterval)
	assert.Less(t, cfg.Navigation.JumpRung, cfg.Navigation.ReissueRung)
	assert.Less(t, cfg.Navigation.ReissueRung, cfg.Navigation.RestartRung)
}

func TestLoadAgent_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadAgent(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAgent().Bridge, cfg.Bridge)
	assert.Equal(t, DefaultAgent().Destination, cfg.Destination)
}

func TestLoadAgent_Overrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
metrics_addr: ":9108"
bridge:
  username: Keeper
destination:
  x: 10
  y: 70
  z: -20
  tolerance: 1.5
exempt: [Friend1, Friend2]
combat:
  weapon_cooldowns:
    mace: 1200ms
recovery:
  patterns:
    kick: ["kicked for afk"]
reconnect:
  min_delay: 1s
  max_delay: 2s
`)

	cfg, err := LoadAgent(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9108", cfg.MetricsAddr)
	assert.Equal(t, "Keeper", cfg.Bridge.Username)
	assert.Equal(t, DefaultAgent().Bridge.URL, cfg.Bridge.URL, "unset keys keep defaults")
	assert.Equal(t, DestinationConfig{X: 10, Y: 70, Z: -20, Tolerance: 1.5, MinDrift: 1}, cfg.Destination)
	assert.Equal(t, []string{"Friend1", "Friend2"}, cfg.Exempt)
	assert.Equal(t, 1200*time.Millisecond, cfg.Combat.WeaponCooldowns["mace"])
	assert.Equal(t, 625*time.Millisecond, cfg.Combat.WeaponCooldowns["iron_sword"], "map entries merge with defaults")
	assert.Equal(t, []string{"kicked for afk"}, cfg.Recovery.Patterns.Kick)
	assert.Equal(t, DefaultAgent().Recovery.Patterns.Cooldown, cfg.Recovery.Patterns.Cooldown)
	assert.Equal(t, time.Second, cfg.Reconnect.MinDelay)
}

func TestLoadAgent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "bridge: [unterminated"},
		{"empty url", "bridge:\n  url: \"\""},
		{"negative tolerance", "destination:\n  tolerance: -1"},
		{"rungs out of order", "navigation:\n  jump_rung: 4\n  reissue_rung: 2"},
		{"attack beyond chase", "combat:\n  attack_range: 20\n  chase_range: 10"},
		{"no warp attempts", "recovery:\n  warp_retry_attempts: 0"},
		{"reconnect window inverted", "reconnect:\n  min_delay: 9s\n  max_delay: 1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAgent(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}
