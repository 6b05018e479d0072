// Package speed implements the closed-loop longitudinal speed controller.
//
// A [Controller] is shared by two independent producers: a setpoint stream
// calling [Controller.UpdateSetpoint] and a pose stream calling
// [Controller.UpdatePose]. Every call holds the controller's lock for its
// whole duration, so each observes a fully consistent prior state.
//
// A panic inside an update is not recovered. The process is expected to
// die and be restarted with a fresh controller.
package speed

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/speedpid/internal/control"
	"github.com/san-kum/speedpid/internal/estimate"
	"github.com/san-kum/speedpid/internal/heading"
	"github.com/san-kum/speedpid/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is fixed for the lifetime of a Controller.
type Config struct {
	PID             control.Params
	ConstantSpeed   float64
	InvertDirection bool
	Policy          Policy
}

// Stats counts what happened to incoming samples.
type Stats struct {
	Updates   uint64 // pose updates received
	Steps     uint64 // PID steps taken
	Dropped   uint64 // samples skipped for a degenerate or non-finite estimate
	NonFinite uint64 // PID outputs replaced because they were NaN or Inf
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Setpoint float64
	Speed    float64
	Output   float64
	Integral float64
	Terms    control.Terms
	Seeded   bool
	Stats    Stats
}

// Controller turns pose and setpoint streams into a speed command.
type Controller struct {
	constantSpeed float64
	policy        Policy
	est           *estimate.Estimator

	mu sync.Mutex
	loop
}

// loop is the mutable state guarded by Controller.mu.
type loop struct {
	pid        *control.PID
	last       estimate.PoseSample
	seeded     bool
	lastSpeed  float64
	lastOutput float64
	stats      Stats
}

// outcome records what UpdatePose did so it can be logged after the lock
// is released.
type outcome int

const (
	outcomeSeeded outcome = iota
	outcomeStepped
	outcomeUnclassified // stepped, direction assumed forward
	outcomeDropped
	outcomeNonFinite
)

// New validates cfg and returns an unseeded Controller with a zero setpoint.
func New(cfg Config) (*Controller, error) {
	if err := cfg.PID.Validate(); err != nil {
		return nil, fmt.Errorf("pid: %w", err)
	}
	if math.IsNaN(cfg.ConstantSpeed) || math.IsInf(cfg.ConstantSpeed, 0) || cfg.ConstantSpeed < 0 {
		return nil, fmt.Errorf("constant speed must be finite and non-negative, got %v", cfg.ConstantSpeed)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyQuantized
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown setpoint policy %q", policy)
	}

	return &Controller{
		constantSpeed: cfg.ConstantSpeed,
		policy:        policy,
		est:           estimate.New(cfg.InvertDirection),
		loop: loop{
			pid: control.NewPID(cfg.PID),
		},
	}, nil
}

// UpdateSetpoint maps a command value to a new target speed according to
// the configured policy. It never touches pose state and produces no output.
func (c *Controller) UpdateSetpoint(input float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.SetSetpoint(c.policy.apply(input, c.constantSpeed))
}

// UpdatePose feeds a new pose sample and returns the control output.
//
// The first sample after construction or Reset only seeds the estimator and
// returns 0. A sample whose interval to the previous one is not positive,
// or whose estimate is not finite, is dropped: the previous output is
// returned and the sample still replaces the stored one.
func (c *Controller) UpdatePose(pose estimate.PoseSample) float64 {
	out, speed, dt, res := c.updatePose(pose)
	c.logPose(pose, out, speed, dt, res)
	return out
}

func (c *Controller) updatePose(pose estimate.PoseSample) (out, speed, dt float64, res outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Updates++
	if !c.seeded {
		c.last = pose
		c.seeded = true
		c.lastOutput = 0
		return 0, 0, 0, outcomeSeeded
	}

	prev := c.last
	c.last = pose
	dt = estimate.Interval(prev, pose)

	speed, err := c.est.Estimate(prev, pose)
	unclassified := errors.Is(err, heading.ErrUnclassifiable)
	if err != nil && !unclassified {
		c.stats.Dropped++
		return c.lastOutput, 0, dt, outcomeDropped
	}
	c.lastSpeed = speed

	out = c.pid.Step(speed, dt)
	c.stats.Steps++
	if math.IsNaN(out) || math.IsInf(out, 0) {
		c.stats.NonFinite++
		return c.lastOutput, speed, dt, outcomeNonFinite
	}
	c.lastOutput = out
	if unclassified {
		return out, speed, dt, outcomeUnclassified
	}
	return out, speed, dt, outcomeStepped
}

func (c *Controller) logPose(pose estimate.PoseSample, out, speed, dt float64, res outcome) {
	log := logging.L()
	switch res {
	case outcomeDropped:
		if ce := log.Check(zapcore.DebugLevel, "dropped pose sample"); ce != nil {
			ce.Write(zap.Float64("dt", dt), zap.Float64("x", pose.X), zap.Float64("y", pose.Y))
		}
	case outcomeNonFinite:
		log.Warn("non-finite control output replaced",
			zap.Float64("speed", speed),
			zap.Float64("dt", dt),
			zap.Float64("output", out))
	case outcomeUnclassified:
		log.Warn("direction unclassifiable, assuming forward",
			zap.Float64("theta", pose.Theta),
			zap.Float64("speed", speed),
			zap.Float64("output", out))
	case outcomeStepped:
		if ce := log.Check(zapcore.DebugLevel, "pose update"); ce != nil {
			ce.Write(
				zap.Float64("x", pose.X),
				zap.Float64("y", pose.Y),
				zap.Float64("theta", pose.Theta),
				zap.Float64("speed", speed),
				zap.Float64("output", out))
		}
	}
}

// Reset forgets the stored sample and clears the PID's integral and
// derivative history. The setpoint is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.Reset()
	c.seeded = false
	c.last = estimate.PoseSample{}
	c.lastSpeed = 0
	c.lastOutput = 0
}

func (c *Controller) Setpoint() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid.Setpoint()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Setpoint: c.pid.Setpoint(),
		Speed:    c.lastSpeed,
		Output:   c.lastOutput,
		Integral: c.pid.Integral(),
		Terms:    c.pid.Terms(),
		Seeded:   c.seeded,
		Stats:    c.stats,
	}
}

// Saturated reports whether the last PID step hit a limit.
func (c *Controller) Saturated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid.Saturated()
}
