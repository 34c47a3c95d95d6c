// Package objective scores suspension parameters by simulating a run and
// comparing the body to the road it should follow.
//
// The score of a parameter vector p is
//
//	Σ (x1(t_i) − y(t_i))²                       tracking
//	+ BoundPenalty · [k1 ∉ K1] + BoundPenalty · [k2 ∉ K2]
//	+ Σ (|a_i| − limit)² over samples with |a_i| > limit
//
// where a_i is the forward difference of body velocity on the sample grid
// and limit is AccelLimitG·g. A run that diverges scores DivergedScore so
// a search can keep exploring.
package objective

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/integrators"
	"github.com/san-kum/suspopt/internal/metrics"
	"github.com/san-kum/suspopt/internal/physics"
)

const (
	DefaultBoundPenalty  = 100.0
	DefaultAccelLimitG   = 2.0
	DefaultDivergedScore = 1e10
)

type Settings struct {
	BoundPenalty  float64
	AccelLimitG   float64
	DivergedScore float64
}

func DefaultSettings() Settings {
	return Settings{
		BoundPenalty:  DefaultBoundPenalty,
		AccelLimitG:   DefaultAccelLimitG,
		DivergedScore: DefaultDivergedScore,
	}
}

func (s Settings) Validate() error {
	if s.BoundPenalty < 0 || math.IsNaN(s.BoundPenalty) {
		return dynamo.Invalid("bound penalty must be non-negative, got %g", s.BoundPenalty)
	}
	if !(s.AccelLimitG > 0) {
		return dynamo.Invalid("acceleration limit must be positive, got %g g", s.AccelLimitG)
	}
	if !(s.DivergedScore > 0) || math.IsInf(s.DivergedScore, 0) {
		return dynamo.Invalid("diverged score must be positive and finite, got %g", s.DivergedScore)
	}
	return nil
}

// Problem is everything an evaluation needs besides the parameters.
type Problem struct {
	Consts      physics.Constants
	Limits      physics.Limits
	Road        physics.Road
	Times       []float64
	Integration integrators.Options
	Settings    Settings
}

// Objective is safe for concurrent use: evaluations share only read-only
// configuration.
type Objective struct {
	p          Problem
	accelLimit float64
	logger     *zap.Logger
}

func New(p Problem, logger *zap.Logger) (*Objective, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Road == nil {
		return nil, dynamo.Invalid("road profile is required")
	}
	if err := p.Consts.Validate(); err != nil {
		return nil, err
	}
	if err := p.Settings.Validate(); err != nil {
		return nil, err
	}
	if err := p.Integration.Validate(); err != nil {
		return nil, err
	}
	if err := integrators.CheckTimes(p.Times); err != nil {
		return nil, err
	}
	p.Times = append([]float64(nil), p.Times...)

	return &Objective{
		p:          p,
		accelLimit: p.Settings.AccelLimitG * p.Consts.Gravity,
		logger:     logger,
	}, nil
}

// Score is an evaluation broken into its terms.
type Score struct {
	Tracking       float64 `json:"tracking"`
	TrackingRMS    float64 `json:"tracking_rms"`
	BoundPenalty   float64 `json:"bound_penalty"`
	ComfortPenalty float64 `json:"comfort_penalty"`
	PeakAccel      float64 `json:"peak_accel"`
	Total          float64 `json:"total"`
	Diverged       bool    `json:"diverged"`
}

func (o *Objective) Times() []float64 { return o.p.Times }

func (o *Objective) Problem() Problem { return o.p }

// AccelLimit is the comfort limit in m/s².
func (o *Objective) AccelLimit() float64 { return o.accelLimit }

// Evaluate returns the total score of p.
func (o *Objective) Evaluate(p physics.Params) float64 {
	return o.Breakdown(p).Total
}

// Func adapts Evaluate to a plain vector function.
func (o *Objective) Func(x []float64) float64 {
	return o.Evaluate(physics.ParamsFromSlice(x))
}

func (o *Objective) Breakdown(p physics.Params) Score {
	_, score, _ := o.run(p)
	return score
}

func (o *Objective) boundPenalty(p physics.Params) float64 {
	penalty := 0.0
	if !o.p.Limits.Suspension.Contains(p.K1) {
		penalty += o.p.Settings.BoundPenalty
	}
	if !o.p.Limits.Tire.Contains(p.K2) {
		penalty += o.p.Settings.BoundPenalty
	}
	return penalty
}

func (o *Objective) run(p physics.Params) ([]dynamo.State, Score, error) {
	score := Score{BoundPenalty: o.boundPenalty(p)}

	car := physics.NewQuarterCar(o.p.Consts, p, o.p.Road)
	states, err := integrators.Integrate(car, integrators.ZeroState(car), o.p.Times, o.p.Integration)
	if err != nil {
		o.logger.Debug("integration diverged", zap.Stringer("params", p), zap.Error(err))
		score.Diverged = true
		score.Total = o.p.Settings.DivergedScore
		return nil, score, err
	}

	tracking := metrics.NewTrackingError(o.p.Road)
	comfort := metrics.NewComfortExcess(o.accelLimit)
	metrics.Observe(states, o.p.Times, tracking, comfort)

	score.Tracking = tracking.Value()
	score.TrackingRMS = tracking.RMS()
	score.ComfortPenalty = comfort.Value()
	score.PeakAccel = comfort.Peak()
	score.Total = score.Tracking + score.BoundPenalty + score.ComfortPenalty

	if math.IsNaN(score.Total) || math.IsInf(score.Total, 0) {
		o.logger.Debug("non-finite score", zap.Stringer("params", p))
		score.Diverged = true
		score.Total = o.p.Settings.DivergedScore
		return states, score, fmt.Errorf("%w: non-finite score", dynamo.ErrUnstable)
	}

	return states, score, nil
}
