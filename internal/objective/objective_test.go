package objective

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/integrators"
	"github.com/san-kum/suspopt/internal/physics"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func referenceProblem(t *testing.T) Problem {
	t.Helper()
	consts := physics.DefaultConstants()
	limits, err := physics.ComputeLimits(consts,
		physics.ComplianceRange{Min: 0.0762, Max: 0.1524},
		physics.ComplianceRange{Min: 0.01905, Max: 0.0381})
	if err != nil {
		t.Fatal(err)
	}
	ramp, err := physics.NewRamp(15, 0.1524, 45)
	if err != nil {
		t.Fatal(err)
	}
	return Problem{
		Consts:      consts,
		Limits:      limits,
		Road:        ramp,
		Times:       linspace(0, 3, 100),
		Integration: integrators.DefaultOptions(),
		Settings:    DefaultSettings(),
	}
}

func initialGuess(p Problem) physics.Params {
	return physics.Params{K1: p.Limits.Suspension.Min, C1: 1000, K2: p.Limits.Tire.Min}
}

func TestEvaluate_Deterministic(t *testing.T) {
	p := referenceProblem(t)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	guess := initialGuess(p)
	a := obj.Evaluate(guess)
	b := obj.Evaluate(guess)
	if a != b {
		t.Errorf("scores differ: %v vs %v", a, b)
	}
	if math.IsNaN(a) || a < 0 {
		t.Errorf("invalid score %v", a)
	}
}

func TestBreakdown_BoundaryHasNoPenalty(t *testing.T) {
	p := referenceProblem(t)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	atMin := initialGuess(p)
	s := obj.Breakdown(atMin)
	if s.BoundPenalty != 0 {
		t.Errorf("k1 at k1_min penalised by %f", s.BoundPenalty)
	}

	below := atMin
	below.K1 = atMin.K1 - atMin.K1*1e-9
	sb := obj.Breakdown(below)
	if sb.BoundPenalty != DefaultBoundPenalty {
		t.Errorf("bound penalty = %f, want %f", sb.BoundPenalty, DefaultBoundPenalty)
	}
	wantRMS := math.Sqrt(s.Tracking / float64(len(p.Times)))
	if math.Abs(s.TrackingRMS-wantRMS) > 1e-12 {
		t.Errorf("tracking rms = %g, want %g", s.TrackingRMS, wantRMS)
	}
	if sb.Total != sb.Tracking+sb.BoundPenalty+sb.ComfortPenalty {
		t.Errorf("total %f is not the sum of its terms", sb.Total)
	}

	unpenalised := sb.Total - sb.BoundPenalty
	if math.Abs(unpenalised-s.Total) > 1e-6 {
		t.Errorf("score beyond penalty = %f, boundary score = %f", unpenalised, s.Total)
	}
}

func TestBreakdown_BothBoundsPenalisedIndependently(t *testing.T) {
	p := referenceProblem(t)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	guess := initialGuess(p)
	tests := []struct {
		name   string
		params physics.Params
		want   float64
	}{
		{"feasible", guess, 0},
		{"k1 above", physics.Params{K1: p.Limits.Suspension.Max * 1.01, C1: 1000, K2: guess.K2}, 100},
		{"k2 below", physics.Params{K1: guess.K1, C1: 1000, K2: guess.K2 * 0.99}, 100},
		{"both", physics.Params{K1: guess.K1 * 0.5, C1: 1000, K2: p.Limits.Tire.Max * 2}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := obj.Breakdown(tt.params).BoundPenalty; got != tt.want {
				t.Errorf("bound penalty = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestBreakdown_ZeroForcing(t *testing.T) {
	p := referenceProblem(t)
	p.Road = physics.Flat{}
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	traj, err := obj.Trajectory(physics.Params{})
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range traj.States {
		for j, v := range s {
			if v != 0 {
				t.Fatalf("state[%d][%d] = %g, want 0", i, j, v)
			}
		}
	}

	s := traj.Score
	if s.Tracking != 0 || s.ComfortPenalty != 0 {
		t.Errorf("expected zero error terms, got %+v", s)
	}
	if s.BoundPenalty != 2*DefaultBoundPenalty {
		t.Errorf("zero stiffness should violate both bounds, got %f", s.BoundPenalty)
	}
}

func TestBreakdown_ComfortPenalty(t *testing.T) {
	p := referenceProblem(t)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	stiff := physics.Params{K1: 1e7, C1: 2e4, K2: 1e7}
	s := obj.Breakdown(stiff)
	if s.Diverged {
		t.Fatal("stiff run should not diverge")
	}
	if s.PeakAccel <= obj.AccelLimit() {
		t.Fatalf("peak acceleration %f does not exceed limit %f", s.PeakAccel, obj.AccelLimit())
	}
	if s.ComfortPenalty <= 0 {
		t.Error("expected a comfort penalty")
	}

	soft := obj.Breakdown(initialGuess(p))
	if soft.PeakAccel < obj.AccelLimit() && soft.ComfortPenalty != 0 {
		t.Errorf("penalty %f charged below the limit", soft.ComfortPenalty)
	}
}

func TestBreakdown_DivergenceIsFinite(t *testing.T) {
	p := referenceProblem(t)
	p.Integration.MaxSteps = 5000
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := obj.Breakdown(physics.Params{K1: -1e12, C1: -1e9, K2: 1e12})
	if !s.Diverged {
		t.Fatalf("expected divergence, got %+v", s)
	}
	if s.Total != DefaultDivergedScore {
		t.Errorf("total = %g, want %g", s.Total, DefaultDivergedScore)
	}

	if _, err := obj.Trajectory(physics.Params{K1: -1e12, C1: -1e9, K2: 1e12}); err == nil {
		t.Error("Trajectory should report divergence")
	}
}

func TestTrajectory_ShortWindowReferenceIncreasing(t *testing.T) {
	p := referenceProblem(t)
	ramp := p.Road.(*physics.Ramp)
	p.Times = linspace(0, 0.9*ramp.TraversalTime, 20)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	traj, err := obj.Trajectory(initialGuess(p))
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(traj.Road); i++ {
		if traj.Road[i] <= traj.Road[i-1] {
			t.Fatalf("reference not strictly increasing at %d", i)
		}
	}
	if traj.Road[len(traj.Road)-1] >= ramp.Rise {
		t.Error("reference reached the plateau inside the window")
	}
	if len(traj.BodyAccel) != len(traj.Times)-1 {
		t.Errorf("body accel has %d samples, want %d", len(traj.BodyAccel), len(traj.Times)-1)
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	p := referenceProblem(t)
	obj, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	guess := initialGuess(p)
	want := obj.Evaluate(guess)

	var wg sync.WaitGroup
	got := make([]float64, 8)
	for i := range got {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			got[idx] = obj.Evaluate(guess)
		}(i)
	}
	wg.Wait()

	for i, v := range got {
		if v != want {
			t.Errorf("evaluation %d = %v, want %v", i, v, want)
		}
	}
}

func TestFunc_WrongLengthPanics(t *testing.T) {
	obj, err := New(referenceProblem(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	obj.Func([]float64{1, 2})
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Problem)
		want   error
	}{
		{"nil road", func(p *Problem) { p.Road = nil }, dynamo.ErrInvalidConfig},
		{"empty times", func(p *Problem) { p.Times = nil }, dynamo.ErrTimeGrid},
		{"unsorted times", func(p *Problem) { p.Times = []float64{0, 2, 1} }, dynamo.ErrTimeGrid},
		{"zero mass", func(p *Problem) { p.Consts.SprungMass = 0 }, dynamo.ErrInvalidConfig},
		{"negative penalty", func(p *Problem) { p.Settings.BoundPenalty = -1 }, dynamo.ErrInvalidConfig},
		{"zero accel limit", func(p *Problem) { p.Settings.AccelLimitG = 0 }, dynamo.ErrInvalidConfig},
		{"bad integration", func(p *Problem) { p.Integration.MaxSteps = 0 }, dynamo.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := referenceProblem(t)
			tt.mutate(&p)
			if _, err := New(p, nil); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
