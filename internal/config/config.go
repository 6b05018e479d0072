package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/speedpid/internal/control"
	"github.com/san-kum/speedpid/internal/integrators"
	"github.com/san-kum/speedpid/internal/speed"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt            = 0.01
	DefaultDuration      = 20.0
	DefaultConstantSpeed = 1.0
	DefaultPosePeriod    = 0.1
	DefaultKp            = 1.0
	DefaultLimit         = 100.0
)

type Config struct {
	PID             control.Params `yaml:"pid"`
	ConstantSpeed   float64        `yaml:"constant_speed"`
	InvertDirection bool           `yaml:"invert_direction"`
	SetpointPolicy  string         `yaml:"setpoint_policy"`
	Vehicle         VehicleConfig  `yaml:"vehicle"`
	Feed            FeedConfig     `yaml:"feed"`
	Sim             SimConfig      `yaml:"sim"`
	Schedule        []SetpointStep `yaml:"schedule"`
}

type VehicleConfig struct {
	Mass          float64 `yaml:"mass"`
	Drag          float64 `yaml:"drag"`
	Gain          float64 `yaml:"gain"`
	Curvature     float64 `yaml:"curvature"`
	Heading       float64 `yaml:"heading"`
	ReversedMount bool    `yaml:"reversed_mount"`
}

// FeedConfig shapes the simulated pose stream.
type FeedConfig struct {
	PosePeriod float64 `yaml:"pose_period"`
	Jitter     float64 `yaml:"jitter"`     // fraction of PosePeriod
	DropRate   float64 `yaml:"drop_rate"`  // samples lost before reaching the controller
	StaleRate  float64 `yaml:"stale_rate"` // samples repeating the previous stamp
	Seed       int64   `yaml:"seed"`
}

type SimConfig struct {
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Integrator string  `yaml:"integrator"`
}

// SetpointStep sends Value on the setpoint stream at time At.
type SetpointStep struct {
	At    float64 `yaml:"at"`
	Value float64 `yaml:"value"`
}

func DefaultConfig() *Config {
	return &Config{
		PID: control.Params{
			Kp:     DefaultKp,
			PLimit: DefaultLimit,
			ILimit: DefaultLimit,
			DLimit: DefaultLimit,
		},
		ConstantSpeed:  DefaultConstantSpeed,
		SetpointPolicy: string(speed.PolicyQuantized),
		Vehicle: VehicleConfig{
			Mass: 1.0,
			Drag: 0.5,
			Gain: 1.0,
		},
		Feed: FeedConfig{
			PosePeriod: DefaultPosePeriod,
		},
		Sim: SimConfig{
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			Integrator: "rk4",
		},
		Schedule: []SetpointStep{{At: 0, Value: 1}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if err := c.PID.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pid: %w", err))
	}
	if c.ConstantSpeed < 0 {
		errs = append(errs, fmt.Errorf("constant_speed must not be negative, got %v", c.ConstantSpeed))
	}
	if !speed.Policy(c.SetpointPolicy).Valid() {
		errs = append(errs, fmt.Errorf("unknown setpoint_policy %q", c.SetpointPolicy))
	}
	if c.Vehicle.Mass <= 0 {
		errs = append(errs, fmt.Errorf("vehicle.mass must be positive, got %v", c.Vehicle.Mass))
	}
	if c.Vehicle.Drag < 0 {
		errs = append(errs, fmt.Errorf("vehicle.drag must not be negative, got %v", c.Vehicle.Drag))
	}
	if c.Feed.PosePeriod <= 0 {
		errs = append(errs, fmt.Errorf("feed.pose_period must be positive, got %v", c.Feed.PosePeriod))
	}
	if c.Feed.Jitter < 0 || c.Feed.Jitter >= 1 {
		errs = append(errs, fmt.Errorf("feed.jitter must be in [0, 1), got %v", c.Feed.Jitter))
	}
	for name, rate := range map[string]float64{"drop_rate": c.Feed.DropRate, "stale_rate": c.Feed.StaleRate} {
		if rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("feed.%s must be in [0, 1], got %v", name, rate))
		}
	}
	if c.Sim.Dt <= 0 {
		errs = append(errs, fmt.Errorf("sim.dt must be positive, got %v", c.Sim.Dt))
	}
	if c.Sim.Duration <= 0 {
		errs = append(errs, fmt.Errorf("sim.duration must be positive, got %v", c.Sim.Duration))
	}
	if !slices.Contains(integrators.Names(), c.Sim.Integrator) {
		errs = append(errs, fmt.Errorf("unknown sim.integrator %q", c.Sim.Integrator))
	}
	if !slices.IsSortedFunc(c.Schedule, func(a, b SetpointStep) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	}) {
		errs = append(errs, errors.New("schedule must be ordered by time"))
	}
	return errors.Join(errs...)
}

// Controller returns the controller settings.
func (c *Config) Controller() speed.Config {
	return speed.Config{
		PID:             c.PID,
		ConstantSpeed:   c.ConstantSpeed,
		InvertDirection: c.InvertDirection,
		Policy:          speed.Policy(c.SetpointPolicy),
	}
}
