package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/suspopt/internal/dynamo"
)

const (
	DefaultGravity      = 9.81
	DefaultSprungMass   = 450.0
	DefaultUnsprungMass = 40.0
)

// Constants holds the fixed physical inputs of a run.
type Constants struct {
	Gravity      float64
	SprungMass   float64
	UnsprungMass float64
}

func DefaultConstants() Constants {
	return Constants{
		Gravity:      DefaultGravity,
		SprungMass:   DefaultSprungMass,
		UnsprungMass: DefaultUnsprungMass,
	}
}

func (c Constants) Validate() error {
	if !(c.Gravity > 0) {
		return dynamo.Invalid("gravity must be positive, got %g", c.Gravity)
	}
	if !(c.SprungMass > 0) {
		return dynamo.Invalid("sprung mass must be positive, got %g", c.SprungMass)
	}
	if !(c.UnsprungMass > 0) {
		return dynamo.Invalid("unsprung mass must be positive, got %g", c.UnsprungMass)
	}
	return nil
}

// ComplianceRange is the acceptable static compression of a spring, in metres.
type ComplianceRange struct {
	Min float64
	Max float64
}

func (r ComplianceRange) Validate() error {
	if !(r.Min > 0) || !(r.Max > 0) {
		return dynamo.Invalid("compression range (%g, %g) must be positive", r.Min, r.Max)
	}
	if !(r.Min <= r.Max) {
		return dynamo.Invalid("compression range (%g, %g) is inverted", r.Min, r.Max)
	}
	return nil
}

// StiffnessBounds is the admissible spring constant range in N/m.
type StiffnessBounds struct {
	Min float64
	Max float64
}

// Contains reports whether k lies in [Min, Max].
func (b StiffnessBounds) Contains(k float64) bool {
	return k >= b.Min && k <= b.Max
}

func (b StiffnessBounds) String() string {
	return fmt.Sprintf("[%.1f, %.1f] N/m", b.Min, b.Max)
}

// ComputeBounds derives stiffness bounds for a spring carrying mass m under
// gravity g. The softest admissible spring compresses the most.
func ComputeBounds(m, g float64, r ComplianceRange) (StiffnessBounds, error) {
	if !(m > 0) {
		return StiffnessBounds{}, dynamo.Invalid("mass must be positive, got %g", m)
	}
	if !(g > 0) {
		return StiffnessBounds{}, dynamo.Invalid("gravity must be positive, got %g", g)
	}
	if err := r.Validate(); err != nil {
		return StiffnessBounds{}, err
	}
	load := m * g
	b := StiffnessBounds{Min: load / r.Max, Max: load / r.Min}
	if math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) || !(b.Min > 0) {
		return StiffnessBounds{}, dynamo.Invalid("stiffness bounds %v are not finite", b)
	}
	return b, nil
}

// Limits groups the bounds for the suspension spring (k1) and the tire (k2).
type Limits struct {
	Suspension StiffnessBounds
	Tire       StiffnessBounds
}

// ComputeLimits derives both spring bounds. The suspension carries the body;
// the tire is bounded by the wheel mass alone.
func ComputeLimits(c Constants, suspension, tire ComplianceRange) (Limits, error) {
	if err := c.Validate(); err != nil {
		return Limits{}, err
	}
	k1, err := ComputeBounds(c.SprungMass, c.Gravity, suspension)
	if err != nil {
		return Limits{}, fmt.Errorf("suspension: %w", err)
	}
	k2, err := ComputeBounds(c.UnsprungMass, c.Gravity, tire)
	if err != nil {
		return Limits{}, fmt.Errorf("tire: %w", err)
	}
	return Limits{Suspension: k1, Tire: k2}, nil
}
