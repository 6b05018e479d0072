package viz

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/speedpid/internal/config"
	"github.com/san-kum/speedpid/internal/dynamo"
	"github.com/san-kum/speedpid/internal/estimate"
	"github.com/san-kum/speedpid/internal/integrators"
	"github.com/san-kum/speedpid/internal/logging"
	"github.com/san-kum/speedpid/internal/node"
	"github.com/san-kum/speedpid/internal/physics"
	"github.com/san-kum/speedpid/internal/speed"
	"go.uber.org/zap"
)

const (
	canvasWidth     = 40
	canvasHeight    = 16
	historyCapacity = 300
	setpointStep    = 0.25
	setpointMax     = 5
)

type TickMsg time.Time

// Model drives a simulated vehicle in real time. Every tick the plant is
// advanced by one pose period and the resulting pose is sent to the node;
// the node's latest published output is applied on the next tick.
type Model struct {
	cfg     *config.Config
	name    string
	vehicle *physics.Vehicle
	integ   dynamo.Integrator
	ctrl    *speed.Controller

	poses     chan estimate.PoseSample
	setpoints chan float64
	output    *atomic.Uint64
	lost      int

	origin   time.Time
	period   time.Duration
	substeps int

	params   []string
	selected int

	state    dynamo.State
	t        float64
	setpoint float64
	running  bool

	targets []float64
	speeds  []float64
	outputs []float64
	trail   []Point
	canvas  *Canvas
}

func NewModel(cfg *config.Config, name string) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return Model{}, err
	}
	integ, err := integrators.New(cfg.Sim.Integrator)
	if err != nil {
		return Model{}, err
	}
	ctrl, err := speed.New(cfg.Controller())
	if err != nil {
		return Model{}, err
	}

	v := physics.NewVehicle()
	v.Mass = cfg.Vehicle.Mass
	v.Drag = cfg.Vehicle.Drag
	v.Gain = cfg.Vehicle.Gain
	v.Curvature = cfg.Vehicle.Curvature
	v.ReversedMount = cfg.Vehicle.ReversedMount

	substeps := max(int(math.Round(cfg.Feed.PosePeriod/cfg.Sim.Dt)), 1)

	var setpoint float64
	if len(cfg.Schedule) > 0 {
		setpoint = cfg.Schedule[0].Value
	}

	m := Model{
		cfg:       cfg,
		name:      name,
		vehicle:   v,
		integ:     integ,
		ctrl:      ctrl,
		poses:     make(chan estimate.PoseSample, 16),
		setpoints: make(chan float64, 16),
		output:    new(atomic.Uint64),
		origin:    time.Now(),
		period:    time.Duration(cfg.Feed.PosePeriod * float64(time.Second)),
		substeps:  substeps,
		state:     dynamo.State{0, 0, cfg.Vehicle.Heading, 0},
		setpoint:  setpoint,
		running:   true,
		canvas:    NewCanvas(canvasWidth, canvasHeight),
	}
	m.params = slices.Sorted(maps.Keys(v.GetParams()))
	m.setpoints <- setpoint
	return m, nil
}

// Node returns a node wired to the model's streams. Its publisher stores the
// latest output for the model to apply.
func (m Model) Node() *node.Node {
	pub := node.PublisherFunc(func(out float64) {
		m.output.Store(math.Float64bits(out))
	})
	return node.New(m.ctrl, pub, node.DefaultConfig())
}

// Streams returns the pose and setpoint channels the model feeds.
func (m Model) Streams() (<-chan estimate.PoseSample, <-chan float64) {
	return m.poses, m.setpoints
}

func (m Model) Output() float64 { return math.Float64frombits(m.output.Load()) }

func (m Model) Time() float64     { return m.t }
func (m Model) Setpoint() float64 { return m.setpoint }
func (m Model) Running() bool     { return m.running }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "up", "k":
			m.command(m.setpoint + setpointStep)
		case "down", "j":
			m.command(m.setpoint - setpointStep)
		case "0":
			m.command(0)
		case "r":
			m.reset()
		case "tab":
			m.selected = (m.selected + 1) % len(m.params)
		case "+", "=":
			m.adjustParam(1.1)
		case "-", "_":
			m.adjustParam(0.9)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		m.drawTrail()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) command(v float64) {
	m.setpoint = math.Max(-setpointMax, math.Min(setpointMax, v))
	select {
	case m.setpoints <- m.setpoint:
	default:
		m.lost++
	}
}

// adjustParam scales the selected plant parameter. A zero parameter is
// nudged to factor-1 instead.
func (m *Model) adjustParam(factor float64) {
	var plant dynamo.Configurable = m.vehicle
	key := m.params[m.selected]
	v := plant.GetParams()[key]
	next := v * factor
	if v == 0 {
		next = factor - 1
	}
	if err := plant.SetParam(key, next); err != nil {
		logging.L().Warn("plant parameter rejected", zap.String("param", key), zap.Error(err))
	}
}

// step advances the plant by one pose period and emits the pose.
func (m *Model) step() {
	u := dynamo.Control{m.Output()}
	for range m.substeps {
		next := m.integ.Step(m.vehicle, m.state, u, m.t, m.cfg.Sim.Dt)
		if !next.IsValid() {
			logging.L().Warn("live plant diverged, resetting", zap.Float64("t", m.t))
			m.reset()
			return
		}
		m.state = next
		m.t += m.cfg.Sim.Dt
	}

	x, y, theta := m.vehicle.Pose(m.state)
	pose := estimate.PoseSample{
		Stamp: m.origin.Add(time.Duration(m.t * float64(time.Second))),
		X:     x,
		Y:     y,
		Theta: theta,
	}
	select {
	case m.poses <- pose:
	default:
		m.lost++
	}

	m.targets = appendCapped(m.targets, m.setpoint)
	m.speeds = appendCapped(m.speeds, m.state[physics.IdxV])
	m.outputs = appendCapped(m.outputs, u[0])
	m.trail = append(m.trail, Point{X: m.state[physics.IdxX], Y: m.state[physics.IdxY]})
	if len(m.trail) > historyCapacity {
		m.trail = m.trail[1:]
	}
}

// reset puts the vehicle back at the origin and clears the controller.
// The setpoint is kept.
func (m *Model) reset() {
	m.ctrl.Reset()
	m.output.Store(0)
	m.state = dynamo.State{0, 0, m.cfg.Vehicle.Heading, 0}
	m.targets = m.targets[:0]
	m.speeds = m.speeds[:0]
	m.outputs = m.outputs[:0]
	m.trail = m.trail[:0]
}

func (m *Model) drawTrail() {
	m.canvas.DrawPath(m.trail, m.state[physics.IdxTheta])
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m Model) View() string {
	snap := m.ctrl.Snapshot()

	var s strings.Builder
	s.WriteString(headerStyle.Render("SPEEDPID  "+strings.ToUpper(m.name)) + "\n")
	switch {
	case m.lost > 0:
		s.WriteString(statusWarn.Render(fmt.Sprintf("LAGGING (%d lost)", m.lost)) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	s.WriteString(row("Time", fmt.Sprintf("%.1fs", m.t)))
	s.WriteString(row("Setpoint", fmt.Sprintf("%+.2f m/s", m.setpoint)))
	s.WriteString(row("Speed", fmt.Sprintf("%+.3f m/s", m.state[physics.IdxV])))
	s.WriteString(row("Measured", fmt.Sprintf("%+.3f m/s", snap.Speed)))
	s.WriteString(row("Output", fmt.Sprintf("%+.3f", snap.Output)))
	s.WriteString(row("P/I/D", fmt.Sprintf("%+.2f %+.2f %+.2f", snap.Terms.P, snap.Terms.I, snap.Terms.D)))
	s.WriteString(row("Integral", fmt.Sprintf("%+.3f", snap.Integral)))
	s.WriteString(row("Updates", fmt.Sprintf("%d (%d dropped)", snap.Stats.Updates, snap.Stats.Dropped)))

	s.WriteString("\nPLANT\n")
	params := m.vehicle.GetParams()
	for i, k := range m.params {
		line := fmt.Sprintf("%-10s %.3f", k, params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}

	if len(m.speeds) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.targets, m.speeds},
			asciigraph.Height(6),
			asciigraph.Width(36),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
			asciigraph.Caption("setpoint / speed"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(Sparkline(m.outputs, 36) + "\n")

	s.WriteString(helpStyle.Render("↑↓:Setpoint 0:Stop SP:Pause R:Reset Q:Quit\nTab:Param +/-:Disturb plant"))

	canvasView := canvasStyle.Render(m.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}

// RunLive runs the live view until the user quits. The node runs alongside
// the UI and is stopped when the UI exits.
func RunLive(ctx context.Context, cfg *config.Config, name string) error {
	m, err := NewModel(cfg, name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	poses, setpoints := m.Streams()
	done := make(chan error, 1)
	go func() { done <- m.Node().Run(ctx, poses, setpoints) }()

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	cancel()
	if nodeErr := <-done; err == nil {
		err = nodeErr
	}
	return err
}
