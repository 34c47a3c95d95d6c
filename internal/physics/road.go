package physics

import (
	"math"

	"github.com/san-kum/suspopt/internal/dynamo"
)

// Road returns the road surface height under the wheel at time t.
type Road interface {
	Height(t float64) float64
}

// Flat is a road held at a constant height.
type Flat struct {
	Level float64
}

func (f Flat) Height(t float64) float64 { return f.Level }

// Ramp rises linearly from zero to Rise over TraversalTime, then holds.
type Ramp struct {
	Speed         float64
	Rise          float64
	AngleDeg      float64
	TraversalTime float64
}

// NewRamp computes the traversal time once from the vehicle speed, ramp
// height and ramp angle. The angle must lie strictly between 0 and 90 degrees.
func NewRamp(speed, rise, angleDeg float64) (*Ramp, error) {
	if speed <= 0 {
		return nil, dynamo.Invalid("speed must be positive, got %g", speed)
	}
	if rise <= 0 {
		return nil, dynamo.Invalid("ramp height must be positive, got %g", rise)
	}
	if angleDeg <= 0 || angleDeg >= 90 {
		return nil, dynamo.Invalid("ramp angle must be in (0, 90) degrees, got %g", angleDeg)
	}
	tramp := rise / (math.Tan(angleDeg*math.Pi/180) * speed)
	if !(tramp > 0) || math.IsInf(tramp, 0) {
		return nil, dynamo.Invalid("ramp traversal time must be positive and finite, got %g", tramp)
	}
	return &Ramp{
		Speed:         speed,
		Rise:          rise,
		AngleDeg:      angleDeg,
		TraversalTime: tramp,
	}, nil
}

func (r *Ramp) Height(t float64) float64 {
	if t < r.TraversalTime {
		return r.Rise * (t / r.TraversalTime)
	}
	return r.Rise
}

// Sample evaluates a road at each of the given times.
func Sample(road Road, times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = road.Height(t)
	}
	return out
}
