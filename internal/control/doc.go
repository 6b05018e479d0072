// Package control provides the PID compute engine used by the speed loop.
//
// [PID] is stepped at irregular intervals: every call supplies the measured
// value and the elapsed time since the previous call, and all time-dependent
// terms scale by that elapsed time.
//
// # Usage
//
//	pid := control.NewPID(control.Params{Kp: 1, PLimit: 100, ILimit: 100, DLimit: 100})
//	pid.SetSetpoint(1.5)
//	out := pid.Step(measuredSpeed, dt)
//
// Each of the three terms is clamped independently to its own limit before
// they are summed. The integral clamp applies to the scaled contribution
// (Ki times the accumulator), so the accumulator keeps its full history.
// Params.IntegralLimit optionally bounds the accumulator itself and
// Params.OutputLimit optionally bounds the sum; both are disabled at zero.
package control
