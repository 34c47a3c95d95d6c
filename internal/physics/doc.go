// Package physics provides the quarter-car suspension model and its inputs.
//
// [QuarterCar] implements the [dynamo.System] interface: a sprung body mass
// on a spring/damper, riding on an unsprung wheel mass whose tire is
// modelled as a spring to the road:
//
//	x1: body displacement    x1': body velocity
//	x2: wheel displacement   x2': wheel velocity
//
// Road input comes from a [Road] profile ([Ramp] or [Flat]). Admissible
// spring constants are derived from static-compression limits by
// [ComputeBounds].
//
// # Energy
//
// The model implements [dynamo.Hamiltonian] for diagnostics. The tire
// term is measured against the road height at t:
//
//	car := physics.NewQuarterCar(consts, params, road)
//	e := car.Energy(state, t)
package physics
