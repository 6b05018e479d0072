// Package optim searches controller gains by closed-loop simulation.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/san-kum/speedpid/internal/config"
	"github.com/san-kum/speedpid/internal/control"
	"github.com/san-kum/speedpid/internal/experiment"
	"github.com/san-kum/speedpid/internal/logging"
	"github.com/san-kum/speedpid/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoCandidates = errors.New("optim: empty search grid")

// Candidate is one point of the grid and its score.
type Candidate struct {
	Kp, Ki, Kd float64
	Score      float64
	Metrics    map[string]float64
	Err        error
}

// GridSearch tries every combination of the listed gains. Each gain axis
// must have at least one value.
type GridSearch struct {
	Kp, Ki, Kd []float64
	Metric     string // minimized, default tracking_rms
	Workers    int    // default GOMAXPROCS
}

func NewGridSearch(kp, ki, kd []float64) *GridSearch {
	return &GridSearch{Kp: kp, Ki: ki, Kd: kd, Metric: "tracking_rms"}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func (g *GridSearch) candidates() []Candidate {
	var out []Candidate
	for _, kp := range g.Kp {
		for _, ki := range g.Ki {
			for _, kd := range g.Kd {
				out = append(out, Candidate{Kp: kp, Ki: ki, Kd: kd})
			}
		}
	}
	return out
}

// Search runs base with every gain combination and returns all candidates
// sorted best first. Candidates whose run failed score +Inf and carry
// the error. Only context cancellation aborts the search.
func (g *GridSearch) Search(ctx context.Context, base *config.Config) ([]Candidate, error) {
	cands := g.candidates()
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}
	metric := g.Metric
	if metric == "" {
		metric = "tracking_rms"
	}
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	log := logging.L().With(zap.String("metric", metric))
	log.Info("gain search started", zap.Int("candidates", len(cands)), zap.Int("workers", workers))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range cands {
		eg.Go(func() error {
			c := &cands[i]
			cfg := *base
			cfg.PID = withGains(base.PID, c.Kp, c.Ki, c.Kd)
			cfg.Schedule = append([]config.SetpointStep(nil), base.Schedule...)

			result, err := experiment.Run(ctx, &cfg, metrics.Default())
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Score = math.Inf(1)
			if err != nil {
				c.Err = err
				log.Debug("candidate failed", zap.Float64("kp", c.Kp), zap.Float64("ki", c.Ki),
					zap.Float64("kd", c.Kd), zap.Error(err))
				return nil
			}
			c.Metrics = result.Metrics
			v, ok := result.Metrics[metric]
			if !ok {
				c.Err = fmt.Errorf("optim: unknown metric %q", metric)
				return nil
			}
			if !math.IsNaN(v) {
				c.Score = v
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score < cands[j].Score })
	log.Info("gain search finished",
		zap.Float64("kp", cands[0].Kp), zap.Float64("ki", cands[0].Ki),
		zap.Float64("kd", cands[0].Kd), zap.Float64("score", cands[0].Score))
	return cands, nil
}

func withGains(p control.Params, kp, ki, kd float64) control.Params {
	p.Kp, p.Ki, p.Kd = kp, ki, kd
	return p
}
