package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/suspopt/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_StepAdaptive(t *testing.T) {
	rk := NewRK45(1e-8, 1e-10)
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, errNorm := rk.StepAdaptive(dyn, x0, 0, 0.1)

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
	if math.IsInf(errNorm, 0) || errNorm < 0 {
		t.Errorf("unexpected error norm %g", errNorm)
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	rk := NewRK45(1e-10, 1e-12)
	dyn := &harmonicOscillator{}

	_, newDt, errNorm := rk.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, 0, 2.0)
	if errNorm <= 1 {
		t.Fatalf("expected rejection, got error norm %g", errNorm)
	}
	if newDt >= 2.0 {
		t.Errorf("rejected step should shrink dt, got %f", newDt)
	}
}

type exploding struct{}

func (e *exploding) StateDim() int { return 1 }

func (e *exploding) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{math.Inf(1)}
}

func TestRK45_NonFiniteCandidate(t *testing.T) {
	rk := NewRK45(1e-6, 1e-9)
	_, newDt, errNorm := rk.StepAdaptive(&exploding{}, dynamo.State{1}, 0, 0.1)
	if !math.IsInf(errNorm, 1) {
		t.Errorf("expected infinite error norm, got %g", errNorm)
	}
	if newDt >= 0.1 {
		t.Errorf("expected smaller dt, got %g", newDt)
	}
}
