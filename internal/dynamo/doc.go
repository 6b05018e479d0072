// Package dynamo provides the simulation primitives shared by the vehicle
// model, the integrators and the closed-loop experiment.
//
//   - [State]: vector representing plant state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper
//   - [Sample]: one record of the control loop at a pose update
//   - [Metric] and [Observer]: consumers of samples
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
package dynamo
