// Package viz renders speed controller runs in the terminal.
//
// [Plot] and [PlotTracking] draw stored runs with asciigraph. [RunLive]
// starts an interactive Bubble Tea view that drives a simulated vehicle
// in real time through a [node.Node], so the controller sees the same
// concurrent pose and setpoint streams it would on a robot.
//
// # Key Bindings
//
//	Up/K    - Raise setpoint
//	Down/J  - Lower setpoint
//	0       - Stop (setpoint 0)
//	Space   - Pause/Resume
//	R       - Reset vehicle and controller
//	Tab     - Select plant parameter
//	+/-     - Scale plant parameter by 10%
//	Q       - Quit
//
// [node.Node]: github.com/san-kum/speedpid/internal/node.Node
package viz
