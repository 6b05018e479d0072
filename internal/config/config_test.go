package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/speedpid/internal/speed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0, cfg.PID.Kp)
	assert.Zero(t, cfg.PID.Ki)
	assert.Zero(t, cfg.PID.Kd)
	assert.Equal(t, 100.0, cfg.PID.PLimit)
	assert.Equal(t, string(speed.PolicyQuantized), cfg.SetpointPolicy)
	assert.Positive(t, cfg.Sim.Dt)
	assert.Positive(t, cfg.Sim.Duration)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speed.yaml")
	data := []byte(`
pid:
  kp: 2.5
  ki: 0.3
  p_limit: 10
  i_limit: 5
  d_limit: 1
  integral_limit: 4
constant_speed: 0.75
invert_direction: true
setpoint_policy: proportional
feed:
  pose_period: 0.05
  jitter: 0.2
schedule:
  - {at: 0, value: 0.5}
  - {at: 5, value: -0.5}
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.PID.Kp)
	assert.Equal(t, 4.0, cfg.PID.IntegralLimit)
	assert.Equal(t, 0.75, cfg.ConstantSpeed)
	assert.True(t, cfg.InvertDirection)
	assert.Equal(t, 0.05, cfg.Feed.PosePeriod)
	assert.Len(t, cfg.Schedule, 2)
	// Unset sections keep their defaults.
	assert.Equal(t, DefaultDt, cfg.Sim.Dt)
	assert.Equal(t, "rk4", cfg.Sim.Integrator)

	ctrl := cfg.Controller()
	assert.Equal(t, speed.PolicyProportional, ctrl.Policy)
	assert.True(t, ctrl.InvertDirection)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("setpoint_policy: bang_bang\nsim: {dt: -1}\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bang_bang")
	assert.Contains(t, err.Error(), "sim.dt")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("stop_and_go")
	require.NotNil(t, cfg)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative limit", func(c *Config) { c.PID.ILimit = -1 }},
		{"negative constant speed", func(c *Config) { c.ConstantSpeed = -1 }},
		{"zero mass", func(c *Config) { c.Vehicle.Mass = 0 }},
		{"zero pose period", func(c *Config) { c.Feed.PosePeriod = 0 }},
		{"jitter of one", func(c *Config) { c.Feed.Jitter = 1 }},
		{"drop rate above one", func(c *Config) { c.Feed.DropRate = 1.5 }},
		{"zero duration", func(c *Config) { c.Sim.Duration = 0 }},
		{"unknown integrator", func(c *Config) { c.Sim.Integrator = "rk45" }},
		{"unordered schedule", func(c *Config) {
			c.Schedule = []SetpointStep{{At: 5, Value: 1}, {At: 1, Value: 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.NoError(t, cfg.Validate(), name)
	}

	assert.Nil(t, GetPreset("nonexistent"))
	assert.True(t, GetPreset("reversed_mount").InvertDirection)
}
