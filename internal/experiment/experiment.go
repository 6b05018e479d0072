// Package experiment runs the speed controller in closed loop against a
// simulated vehicle.
//
// The plant is integrated at a fixed step. Poses are sampled from it at
// irregular intervals, stamped with simulation time, and may be lost or
// arrive with a repeated stamp. Setpoint commands are replayed from a
// schedule. Both streams go through the same [speed.Controller] a live
// node would use, and the controller output is held until the next pose.
package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/san-kum/speedpid/internal/config"
	"github.com/san-kum/speedpid/internal/dynamo"
	"github.com/san-kum/speedpid/internal/estimate"
	"github.com/san-kum/speedpid/internal/integrators"
	"github.com/san-kum/speedpid/internal/physics"
	"github.com/san-kum/speedpid/internal/speed"
)

// Epoch is the wall-clock origin of simulation time in pose stamps.
var Epoch = time.Unix(0, 0)

type Experiment struct {
	cfg        *config.Config
	vehicle    *physics.Vehicle
	integrator dynamo.Integrator
	ctrl       *speed.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	rng        *rand.Rand
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.New(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := speed.New(cfg.Controller())
	if err != nil {
		return nil, err
	}

	v := physics.NewVehicle()
	v.Mass = cfg.Vehicle.Mass
	v.Drag = cfg.Vehicle.Drag
	v.Gain = cfg.Vehicle.Gain
	v.Curvature = cfg.Vehicle.Curvature
	v.ReversedMount = cfg.Vehicle.ReversedMount

	return &Experiment{
		cfg:        cfg,
		vehicle:    v,
		integrator: integ,
		ctrl:       ctrl,
		rng:        rand.New(rand.NewSource(cfg.Feed.Seed)),
	}, nil
}

func (e *Experiment) AddMetric(m dynamo.Metric)     { e.metrics = append(e.metrics, m) }
func (e *Experiment) AddObserver(o dynamo.Observer) { e.observers = append(e.observers, o) }

// Controller returns the controller under test.
func (e *Experiment) Controller() *speed.Controller { return e.ctrl }

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	cfg := e.cfg
	steps := int(cfg.Sim.Duration / cfg.Sim.Dt)
	dt := cfg.Sim.Dt

	for _, m := range e.metrics {
		m.Reset()
	}

	result := &dynamo.Result{
		Samples: make([]dynamo.Sample, 0, int(cfg.Sim.Duration/cfg.Feed.PosePeriod)+1),
		Metrics: make(map[string]float64),
	}

	x := dynamo.State{0, 0, cfg.Vehicle.Heading, 0}
	u := dynamo.Control{0}
	feed := newPoseFeed(cfg.Feed, e.rng)
	schedule := cfg.Schedule

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		t := float64(i) * dt

		for len(schedule) > 0 && schedule[0].At <= t {
			e.ctrl.UpdateSetpoint(schedule[0].Value)
			schedule = schedule[1:]
		}

		if pose, ok := feed.poll(t, e.vehicle, x); ok {
			before := e.ctrl.Snapshot().Stats.Dropped
			u[0] = e.ctrl.UpdatePose(pose)
			snap := e.ctrl.Snapshot()

			s := dynamo.Sample{
				Time:      t,
				Setpoint:  snap.Setpoint,
				Measured:  snap.Speed,
				Truth:     x[physics.IdxV],
				Output:    u[0],
				Dropped:   snap.Stats.Dropped > before,
				Saturated: e.ctrl.Saturated(),
			}
			result.Samples = append(result.Samples, s)
			for _, m := range e.metrics {
				m.Observe(s)
			}
			for _, o := range e.observers {
				o.OnSample(s)
			}
		}

		next := e.integrator.Step(e.vehicle, x, u, t, dt)
		if !next.IsValid() {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: next, Wrapped: dynamo.ErrInvalidState}
		}
		x = next
		result.StepsTaken++
	}

	result.FinalState = x
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// poseFeed decides when poses are sampled and how they are stamped.
type poseFeed struct {
	cfg       config.FeedConfig
	rng       *rand.Rand
	next      float64
	lastStamp time.Time
	started   bool
}

func newPoseFeed(cfg config.FeedConfig, rng *rand.Rand) *poseFeed {
	return &poseFeed{cfg: cfg, rng: rng}
}

// poll returns a pose when one is due at time t and survives the feed's
// loss model.
func (f *poseFeed) poll(t float64, v *physics.Vehicle, x dynamo.State) (estimate.PoseSample, bool) {
	if t+1e-9 < f.next {
		return estimate.PoseSample{}, false
	}
	jitter := 1.0
	if f.cfg.Jitter > 0 {
		jitter += f.cfg.Jitter * (2*f.rng.Float64() - 1)
	}
	f.next = t + f.cfg.PosePeriod*jitter

	if f.cfg.DropRate > 0 && f.rng.Float64() < f.cfg.DropRate {
		return estimate.PoseSample{}, false
	}

	stamp := Epoch.Add(time.Duration(t * float64(time.Second)))
	if f.started && f.cfg.StaleRate > 0 && f.rng.Float64() < f.cfg.StaleRate {
		stamp = f.lastStamp
	}
	f.lastStamp = stamp
	f.started = true

	px, py, theta := v.Pose(x)
	return estimate.PoseSample{Stamp: stamp, X: px, Y: py, Theta: theta}, true
}

// Run builds an experiment with the given metrics and observers and runs it.
func Run(ctx context.Context, cfg *config.Config, metrics []dynamo.Metric, observers ...dynamo.Observer) (*dynamo.Result, error) {
	exp, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	for _, m := range metrics {
		exp.AddMetric(m)
	}
	for _, o := range observers {
		exp.AddObserver(o)
	}
	return exp.Run(ctx)
}
