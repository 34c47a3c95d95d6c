package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/suspopt/internal/dynamo"
)

// Options controls the accuracy and budget of Integrate.
type Options struct {
	RelTol   float64
	AbsTol   float64
	MaxStep  float64 // 0 means no limit
	MinStep  float64
	MaxSteps int
}

func DefaultOptions() Options {
	return Options{
		RelTol:   1e-6,
		AbsTol:   1e-9,
		MinStep:  1e-12,
		MaxSteps: 200000,
	}
}

func (o Options) Validate() error {
	if o.RelTol <= 0 || o.AbsTol <= 0 {
		return dynamo.Invalid("tolerances must be positive, got rel=%g abs=%g", o.RelTol, o.AbsTol)
	}
	if o.MaxStep < 0 || o.MinStep <= 0 {
		return dynamo.Invalid("step limits must be positive, got min=%g max=%g", o.MinStep, o.MaxStep)
	}
	if o.MaxSteps <= 0 {
		return dynamo.Invalid("step budget must be positive, got %d", o.MaxSteps)
	}
	return nil
}

// ZeroState returns the rest state of dyn.
func ZeroState(dyn dynamo.System) dynamo.State {
	return make(dynamo.State, dyn.StateDim())
}

// CheckTimes reports whether times is non-empty and strictly increasing.
func CheckTimes(times []float64) error {
	if len(times) == 0 {
		return dynamo.ErrTimeGrid
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g", dynamo.ErrTimeGrid, i, times[i], i-1, times[i-1])
		}
	}
	return nil
}

// Integrate solves dyn from x0 at times[0] and returns the state at every
// requested time. Internal steps are chosen by the error controller and
// always land exactly on each sample, so results do not depend on how the
// grid is spaced relative to the solver. Divergence is reported as a
// *dynamo.SimulationError.
func Integrate(dyn dynamo.System, x0 dynamo.State, times []float64, opts Options) ([]dynamo.State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := CheckTimes(times); err != nil {
		return nil, err
	}
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}
	if !x0.IsValid() {
		return nil, &dynamo.SimulationError{Time: times[0], State: x0.Clone(), Wrapped: dynamo.ErrUnstable}
	}

	out := make([]dynamo.State, len(times))
	out[0] = x0.Clone()
	if len(times) == 1 {
		return out, nil
	}

	rk := NewRK45(opts.RelTol, opts.AbsTol)
	x := x0.Clone()
	t := times[0]
	dt := initialStep(dyn, x, t, times[len(times)-1]-t, opts)
	steps := 0

	for i := 1; i < len(times); i++ {
		target := times[i]
		for t < target {
			if steps >= opts.MaxSteps {
				return nil, &dynamo.SimulationError{Step: steps, Time: t, State: x, Wrapped: dynamo.ErrMaxSteps}
			}

			h := dt
			if opts.MaxStep > 0 && h > opts.MaxStep {
				h = opts.MaxStep
			}
			last := false
			if remaining := target - t; h >= remaining || remaining-h < 1e-3*h {
				h = remaining
				last = true
			}

			xNew, dtNext, errNorm := rk.StepAdaptive(dyn, x, t, h)
			steps++

			if errNorm <= 1 {
				x = xNew
				if last {
					t = target
					if dtNext > dt {
						dt = dtNext
					}
				} else {
					t += h
					dt = dtNext
				}
				continue
			}

			dt = dtNext
			if dt < opts.MinStep {
				wrapped := dynamo.ErrStepTooSmall
				if math.IsInf(errNorm, 1) {
					wrapped = dynamo.ErrUnstable
				}
				return nil, &dynamo.SimulationError{Step: steps, Time: t, State: x, Wrapped: wrapped}
			}
		}
		out[i] = x.Clone()
	}

	return out, nil
}

// initialStep follows the usual starting-step heuristic: the step that moves
// the state by about one percent of its own scale, or a tiny step when the
// system starts at rest.
func initialStep(dyn dynamo.System, x dynamo.State, t, span float64, opts Options) float64 {
	f0 := dyn.Derive(x, t)

	var d0, d1 float64
	for i := range x {
		scale := opts.AbsTol + opts.RelTol*math.Abs(x[i])
		d0 += (x[i] / scale) * (x[i] / scale)
		d1 += (f0[i] / scale) * (f0[i] / scale)
	}
	d0 = math.Sqrt(d0 / float64(len(x)))
	d1 = math.Sqrt(d1 / float64(len(x)))

	h := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h = 0.01 * d0 / d1
	}
	h = math.Min(h, span)
	if opts.MaxStep > 0 {
		h = math.Min(h, opts.MaxStep)
	}
	return math.Max(h, opts.MinStep)
}
