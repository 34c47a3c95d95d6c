package objective

import (
	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/metrics"
	"github.com/san-kum/suspopt/internal/physics"
)

// Trajectory is a replayed run, for consumers that draw or tabulate it.
// BodyAccel has one fewer element than Times.
type Trajectory struct {
	Params    physics.Params `json:"params"`
	Score     Score          `json:"score"`
	Times     []float64      `json:"times"`
	States    []dynamo.State `json:"states"`
	Road      []float64      `json:"road"`
	BodyAccel []float64      `json:"body_accel"`
}

// Trajectory re-runs p. Unlike Breakdown it reports divergence as an error.
func (o *Objective) Trajectory(p physics.Params) (*Trajectory, error) {
	states, score, err := o.run(p)
	if err != nil {
		return nil, err
	}
	return &Trajectory{
		Params:    p,
		Score:     score,
		Times:     append([]float64(nil), o.p.Times...),
		States:    states,
		Road:      physics.Sample(o.p.Road, o.p.Times),
		BodyAccel: metrics.Differentiate(metrics.Column(states, metrics.BodyVelocity), o.p.Times),
	}, nil
}
