package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/suspopt/internal/dynamo"
)

// BodyVelocity is the state index differentiated for body acceleration.
const BodyVelocity = 1

// ComfortExcess approximates body acceleration by forward differences of
// body velocity between consecutive observed samples and sums the squared
// excess of |a| over the limit.
type ComfortExcess struct {
	limit  float64
	prevT  float64
	prevV  float64
	primed bool
	excess float64
	peak   float64
}

func NewComfortExcess(limit float64) *ComfortExcess {
	return &ComfortExcess{limit: limit}
}

func (m *ComfortExcess) Name() string { return "comfort_excess" }

func (m *ComfortExcess) Observe(x dynamo.State, t float64) {
	v := x[BodyVelocity]
	if m.primed {
		a := math.Abs((v - m.prevV) / (t - m.prevT))
		m.peak = math.Max(m.peak, a)
		if a > m.limit {
			over := a - m.limit
			m.excess += over * over
		}
	}
	m.prevT, m.prevV, m.primed = t, v, true
}

func (m *ComfortExcess) Value() float64 { return m.excess }

// Peak is the largest |a| seen so far.
func (m *ComfortExcess) Peak() float64 { return m.peak }

func (m *ComfortExcess) Reset() {
	*m = ComfortExcess{limit: m.limit}
}

// Differentiate returns forward differences dv/dt; the result has one fewer
// element than its inputs.
func Differentiate(values, times []float64) []float64 {
	n := len(values)
	if n < 2 || len(times) != n {
		return nil
	}
	dv := make([]float64, n-1)
	dt := make([]float64, n-1)
	floats.SubTo(dv, values[1:], values[:n-1])
	floats.SubTo(dt, times[1:], times[:n-1])
	floats.Div(dv, dt)
	return dv
}

// Column extracts one state component from every sample.
func Column(states []dynamo.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = s[idx]
	}
	return out
}

// Observe feeds every sample of a run to each metric, after resetting them.
func Observe(states []dynamo.State, times []float64, ms ...dynamo.Metric) {
	for _, m := range ms {
		m.Reset()
	}
	for i, x := range states {
		for _, m := range ms {
			m.Observe(x, times[i])
		}
	}
}
