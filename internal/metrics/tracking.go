package metrics

import (
	"math"

	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/physics"
)

// TrackingError sums the squared distance between body displacement and
// the road under the wheel.
type TrackingError struct {
	road    physics.Road
	samples int
	sse     float64
}

func NewTrackingError(road physics.Road) *TrackingError {
	return &TrackingError{road: road}
}

func (m *TrackingError) Name() string { return "tracking_sse" }

func (m *TrackingError) Observe(x dynamo.State, t float64) {
	d := x[0] - m.road.Height(t)
	m.sse += d * d
	m.samples++
}

func (m *TrackingError) Value() float64 { return m.sse }

// RMS is the root-mean-square tracking error.
func (m *TrackingError) RMS() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sse / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sse = 0
	m.samples = 0
}
