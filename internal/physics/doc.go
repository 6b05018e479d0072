// Package physics models the plant driven by the speed controller.
//
// [Vehicle] is a longitudinal ground vehicle following a constant-curvature
// path. Its state is [x, y, theta, v]: planar position, heading in radians
// and signed speed along the heading. The single control input is the
// commanded drive effort.
package physics
