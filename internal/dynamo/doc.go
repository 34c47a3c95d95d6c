// Package dynamo provides the core primitives for simulating the
// suspension model.
//
// The package defines the fundamental types shared by the physics,
// integrator and objective packages:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [SimulationError]: a failed integration with its step, time and state
//
// # Example
//
//	car := physics.NewQuarterCar(consts, params, road)
//	states, err := integrators.Integrate(car, integrators.ZeroState(car), times, integrators.DefaultOptions())
//
// # Thread Safety
//
// States are plain slices. Every integration run allocates its own, so
// concurrent runs never share buffers.
package dynamo
