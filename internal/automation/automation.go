// Package automation runs batches of closed-loop simulations: scripted
// scenarios and Monte Carlo trials over the pose feed's randomness.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/speedpid/internal/config"
	"github.com/san-kum/speedpid/internal/dynamo"
	"github.com/san-kum/speedpid/internal/experiment"
	"github.com/san-kum/speedpid/internal/logging"
	"github.com/san-kum/speedpid/internal/metrics"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (or the defaults) and applies
// Overrides, a partial config document, on top.
type ScenarioStep struct {
	Name      string    `yaml:"name"`
	Preset    string    `yaml:"preset"`
	Overrides yaml.Node `yaml:"overrides"`
}

// Config resolves the step's configuration.
func (s *ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	}
	if !s.Overrides.IsZero() {
		if err := s.Overrides.Decode(cfg); err != nil {
			return nil, fmt.Errorf("overrides: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &scenario, nil
}

// StepResult pairs a scenario step with its run.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
}

// RunScenario executes the steps in order and stops at the first failure.
// Results of the steps that completed are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	log := logging.L().With(zap.String("scenario", scenario.Name))

	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		log.Info("running scenario step", zap.Int("step", i+1), zap.String("name", name))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		result, err := experiment.Run(ctx, cfg, metrics.Default())
		if err != nil {
			return results, fmt.Errorf("step %d (%s) run: %w", i+1, name, err)
		}
		results = append(results, StepResult{Name: name, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig repeats a run with different pose feed seeds.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Seed      int64 // seed of the first trial; trial i uses Seed+i
}

type Trial struct {
	Seed    int64
	Metrics map[string]float64
}

// MonteCarloResult holds every trial and the spread of one metric.
type MonteCarloResult struct {
	Trials []Trial
	Metric string
	Mean   float64
	StdDev float64
	Worst  float64
}

// RunMonteCarlo runs the trials sequentially and summarizes metric.
func RunMonteCarlo(ctx context.Context, mc MonteCarloConfig, metric string) (*MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, fmt.Errorf("automation: need at least one trial, got %d", mc.NumTrials)
	}
	log := logging.L().With(zap.Int("trials", mc.NumTrials), zap.String("metric", metric))

	out := &MonteCarloResult{Trials: make([]Trial, 0, mc.NumTrials), Metric: metric}
	values := make([]float64, 0, mc.NumTrials)

	for i := range mc.NumTrials {
		cfg := *mc.Base
		cfg.Feed.Seed = mc.Seed + int64(i)

		result, err := experiment.Run(ctx, &cfg, metrics.Default())
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		v, ok := result.Metrics[metric]
		if !ok {
			return nil, fmt.Errorf("automation: unknown metric %q", metric)
		}
		out.Trials = append(out.Trials, Trial{Seed: cfg.Feed.Seed, Metrics: result.Metrics})
		values = append(values, v)
		if i == 0 || v > out.Worst {
			out.Worst = v
		}

		if (i+1)%10 == 0 {
			log.Debug("monte carlo progress", zap.Int("done", i+1))
		}
	}

	out.Mean, out.StdDev = stat.MeanStdDev(values, nil)
	return out, nil
}
