package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/speedpid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: regression
description: cruise then a retuned reverse
steps:
  - name: cruise
    preset: cruise
    overrides:
      sim:
        duration: 5
  - preset: reverse
    overrides:
      pid:
        ki: 0.5
      sim:
        duration: 5
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAndRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)

	cfg, err := sc.Steps[1].Config()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.PID.Ki)
	assert.Equal(t, 1.0, cfg.PID.Kp, "fields outside the overrides keep preset values")
	assert.Equal(t, 5.0, cfg.Sim.Duration)

	results, err := RunScenario(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cruise", results[0].Name)
	assert.Equal(t, "step2", results[1].Name)
	assert.NotEmpty(t, results[1].Result.Samples)
}

func TestScenarioErrors(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: empty\n"))
	assert.ErrorIs(t, err, ErrEmptyScenario)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	sc, err := LoadScenario(writeScenario(t, `
steps:
  - preset: cruise
    overrides:
      sim:
        duration: 2
  - preset: warp
`))
	require.NoError(t, err)
	results, err := RunScenario(context.Background(), sc)
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.GetPreset("noisy")
	base.Sim.Duration = 5

	res, err := RunMonteCarlo(context.Background(), MonteCarloConfig{Base: base, NumTrials: 4, Seed: 100}, "tracking_rms")
	require.NoError(t, err)
	require.Len(t, res.Trials, 4)
	assert.Equal(t, int64(103), res.Trials[3].Seed)
	assert.Greater(t, res.Mean, 0.0)
	assert.GreaterOrEqual(t, res.Worst, res.Mean)
	assert.Equal(t, int64(7), base.Feed.Seed, "base config is not modified")

	_, err = RunMonteCarlo(context.Background(), MonteCarloConfig{Base: base}, "tracking_rms")
	assert.Error(t, err)
	_, err = RunMonteCarlo(context.Background(), MonteCarloConfig{Base: base, NumTrials: 1}, "nope")
	assert.Error(t, err)
}
