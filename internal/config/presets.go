package config

import "sort"

// Presets are named scenarios layered over DefaultConfig.
var Presets = map[string]func(*Config){
	"cruise": func(c *Config) {
		c.Schedule = []SetpointStep{{At: 0, Value: 1}}
	},
	"reverse": func(c *Config) {
		c.Schedule = []SetpointStep{{At: 0, Value: -1}}
	},
	"stop_and_go": func(c *Config) {
		c.PID.Ki = 0.5
		c.Sim.Duration = 40
		c.Schedule = []SetpointStep{
			{At: 0, Value: 1},
			{At: 10, Value: 0},
			{At: 20, Value: -1},
			{At: 30, Value: 1},
		}
	},
	"noisy": func(c *Config) {
		c.PID.Ki = 0.5
		c.Feed.Jitter = 0.5
		c.Feed.DropRate = 0.1
		c.Feed.StaleRate = 0.05
		c.Feed.Seed = 7
	},
	"circle": func(c *Config) {
		c.PID.Ki = 0.5
		c.Vehicle.Curvature = 0.5
		c.Schedule = []SetpointStep{{At: 0, Value: 1}}
	},
	"reversed_mount": func(c *Config) {
		c.PID.Ki = 0.5
		c.Vehicle.ReversedMount = true
		c.InvertDirection = true
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
