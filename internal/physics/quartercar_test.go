package physics

import (
	"math"
	"testing"

	"github.com/san-kum/suspopt/internal/dynamo"
)

func TestQuarterCarDerive_Rest(t *testing.T) {
	car := NewQuarterCar(DefaultConstants(), Params{K1: 30000, C1: 1000, K2: 20000}, Flat{})
	dx := car.Derive(dynamo.State{0, 0, 0, 0}, 0)

	for i, v := range dx {
		if v != 0 {
			t.Errorf("derivative[%d] at rest should be 0, got %f", i, v)
		}
	}
}

func TestQuarterCarDerive_Equations(t *testing.T) {
	c := DefaultConstants()
	p := Params{K1: 30000, C1: 1200, K2: 200000}
	road := Flat{Level: 0.1}
	car := NewQuarterCar(c, p, road)

	x := dynamo.State{0.01, 0.2, 0.03, -0.1}
	dx := car.Derive(x, 1.0)

	susp := p.K1*(0.03-0.01) + p.C1*(-0.1-0.2)
	wantA1 := susp / c.SprungMass
	wantA2 := (-susp + p.K2*(0.1-0.03)) / c.UnsprungMass

	if dx[0] != 0.2 || dx[2] != -0.1 {
		t.Errorf("velocity components = (%f, %f)", dx[0], dx[2])
	}
	if math.Abs(dx[1]-wantA1) > 1e-9 {
		t.Errorf("body acceleration = %f, want %f", dx[1], wantA1)
	}
	if math.Abs(dx[3]-wantA2) > 1e-9 {
		t.Errorf("wheel acceleration = %f, want %f", dx[3], wantA2)
	}
}

func TestQuarterCarDerive_OffGridRoad(t *testing.T) {
	r, err := NewRamp(15, 0.1524, 45)
	if err != nil {
		t.Fatal(err)
	}
	car := NewQuarterCar(DefaultConstants(), Params{K2: 20000}, r)

	tm := r.TraversalTime * 0.37
	dx := car.Derive(dynamo.State{0, 0, 0, 0}, tm)
	want := 20000 * r.Height(tm) / DefaultUnsprungMass
	if math.Abs(dx[3]-want) > 1e-9 {
		t.Errorf("wheel acceleration = %f, want %f", dx[3], want)
	}
}

func TestQuarterCarEnergy(t *testing.T) {
	car := NewQuarterCar(DefaultConstants(), Params{K1: 1000, K2: 2000}, Flat{})

	if e := car.Energy(dynamo.State{0, 0, 0, 0}, 0); e != 0 {
		t.Errorf("energy at rest = %f", e)
	}

	e := car.Energy(dynamo.State{0, 1, 0.1, 0}, 0)
	want := 0.5*450*1 + 0.5*1000*0.01 + 0.5*2000*0.01
	if math.Abs(e-want) > 1e-9 {
		t.Errorf("energy = %f, want %f", e, want)
	}
}

func TestQuarterCarEnergy_RampPlateau(t *testing.T) {
	r, err := NewRamp(15, 0.1524, 45)
	if err != nil {
		t.Fatal(err)
	}
	p := Params{K1: 30000, C1: 1000, K2: 150000}
	car := NewQuarterCar(DefaultConstants(), p, r)

	plateau := 2 * r.TraversalTime
	rest := dynamo.State{0.1524, 0, 0.1524, 0}
	if e := car.Energy(rest, plateau); math.Abs(e) > 1e-9 {
		t.Errorf("energy at rest on the plateau = %f, want 0", e)
	}

	// Mid-ramp the wheel still sits at the datum, so the tire is compressed
	// by the road height.
	mid := r.TraversalTime / 2
	e := car.Energy(dynamo.State{0, 0, 0, 0}, mid)
	want := 0.5 * p.K2 * r.Height(mid) * r.Height(mid)
	if math.Abs(e-want) > 1e-9 {
		t.Errorf("energy mid-ramp = %f, want %f", e, want)
	}
}

func TestParamsFromSlice(t *testing.T) {
	p := ParamsFromSlice([]float64{1, 2, 3})
	if p != (Params{K1: 1, C1: 2, K2: 3}) {
		t.Errorf("got %v", p)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on short vector")
		}
	}()
	ParamsFromSlice([]float64{1, 2})
}
