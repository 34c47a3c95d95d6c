package physics

import (
	"fmt"

	"github.com/san-kum/suspopt/internal/dynamo"
)

// Params is the searched parameter vector.
type Params struct {
	K1 float64 // suspension stiffness, N/m
	C1 float64 // suspension damping, N·s/m
	K2 float64 // tire stiffness, N/m
}

// Dim is the length of a Params vector.
const Dim = 3

func (p Params) Slice() []float64 {
	return []float64{p.K1, p.C1, p.K2}
}

// ParamsFromSlice panics on a vector of the wrong length.
func ParamsFromSlice(x []float64) Params {
	if len(x) != Dim {
		panic(fmt.Sprintf("physics: parameter vector has length %d, want %d", len(x), Dim))
	}
	return Params{K1: x[0], C1: x[1], K2: x[2]}
}

func (p Params) String() string {
	return fmt.Sprintf("k1=%.3f c1=%.3f k2=%.3f", p.K1, p.C1, p.K2)
}

var (
	_ dynamo.System      = (*QuarterCar)(nil)
	_ dynamo.Hamiltonian = (*QuarterCar)(nil)
)

type QuarterCar struct {
	Consts Constants
	Params Params
	Road   Road
}

func NewQuarterCar(c Constants, p Params, road Road) *QuarterCar {
	return &QuarterCar{Consts: c, Params: p, Road: road}
}

func (q *QuarterCar) StateDim() int { return 4 }

func (q *QuarterCar) Derive(x dynamo.State, t float64) dynamo.State {
	x1, v1, x2, v2 := x[0], x[1], x[2], x[3]
	y := q.Road.Height(t)

	susp := q.Params.K1*(x2-x1) + q.Params.C1*(v2-v1)
	tire := q.Params.K2 * (y - x2)

	return dynamo.State{
		v1,
		susp / q.Consts.SprungMass,
		v2,
		(-susp + tire) / q.Consts.UnsprungMass,
	}
}

// Energy is kinetic plus spring potential energy at time t. The tire
// deflects against the road height under the wheel. Gravity is excluded
// since displacements are measured from static equilibrium.
func (q *QuarterCar) Energy(x dynamo.State, t float64) float64 {
	x1, v1, x2, v2 := x[0], x[1], x[2], x[3]
	tire := q.Road.Height(t) - x2
	ke := 0.5*q.Consts.SprungMass*v1*v1 + 0.5*q.Consts.UnsprungMass*v2*v2
	pe := 0.5*q.Params.K1*(x2-x1)*(x2-x1) + 0.5*q.Params.K2*tire*tire
	return ke + pe
}
