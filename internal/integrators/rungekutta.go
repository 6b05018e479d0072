// Package integrators advances plant state over one fixed step.
package integrators

import (
	"fmt"

	"github.com/san-kum/speedpid/internal/dynamo"
)

// Tableau is the Butcher tableau of an explicit Runge-Kutta method.
// A is strictly lower triangular.
type Tableau struct {
	A [][]float64
	B []float64
	C []float64
}

var (
	eulerTableau = Tableau{
		A: [][]float64{{}},
		B: []float64{1},
		C: []float64{0},
	}
	midpointTableau = Tableau{
		A: [][]float64{{}, {0.5}},
		B: []float64{0, 1},
		C: []float64{0, 0.5},
	}
	rk4Tableau = Tableau{
		A: [][]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}},
		B: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		C: []float64{0, 0.5, 0.5, 1},
	}
)

// RungeKutta steps with an explicit method. It keeps stage buffers between
// calls and must not be shared across goroutines.
type RungeKutta struct {
	name    string
	tab     Tableau
	k       []dynamo.State
	scratch dynamo.State
}

func newRungeKutta(name string, tab Tableau) *RungeKutta {
	return &RungeKutta{name: name, tab: tab}
}

func NewEuler() *RungeKutta    { return newRungeKutta("euler", eulerTableau) }
func NewMidpoint() *RungeKutta { return newRungeKutta("midpoint", midpointTableau) }
func NewRK4() *RungeKutta      { return newRungeKutta("rk4", rk4Tableau) }

func (r *RungeKutta) Name() string { return r.name }

// Stages is the number of derivative evaluations per step.
func (r *RungeKutta) Stages() int { return len(r.tab.B) }

func (r *RungeKutta) ensureScratch(n int) {
	if len(r.scratch) == n && len(r.k) == len(r.tab.B) {
		return
	}
	r.k = make([]dynamo.State, len(r.tab.B))
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

// Step returns a new state; x is not modified. The control is held
// constant over the step.
func (r *RungeKutta) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	for s, row := range r.tab.A {
		copy(r.scratch, x)
		for j, a := range row {
			if a == 0 {
				continue
			}
			for i := range n {
				r.scratch[i] += dt * a * r.k[j][i]
			}
		}
		copy(r.k[s], dyn.Derive(r.scratch, u, t+r.tab.C[s]*dt))
	}

	result := x.Clone()
	for s, b := range r.tab.B {
		if b == 0 {
			continue
		}
		for i := range n {
			result[i] += dt * b * r.k[s][i]
		}
	}
	return result
}

var registry = map[string]func() *RungeKutta{
	"euler":    NewEuler,
	"midpoint": NewMidpoint,
	"rk4":      NewRK4,
}

// New returns a fresh integrator registered under name. An empty name
// selects rk4.
func New(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return ctor(), nil
}

// Names lists the registered integrators in sorted order.
func Names() []string {
	return []string{"euler", "midpoint", "rk4"}
}
