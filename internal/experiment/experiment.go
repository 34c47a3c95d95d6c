// Package experiment turns a configuration into a validated suspension
// tuning problem and runs the parameter search on it.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/suspopt/internal/config"
	"github.com/san-kum/suspopt/internal/objective"
	"github.com/san-kum/suspopt/internal/optim"
	"github.com/san-kum/suspopt/internal/physics"
)

type Experiment struct {
	cfg    *config.Config
	consts physics.Constants
	limits physics.Limits
	ramp   *physics.Ramp
	obj    *objective.Objective
	logger *zap.Logger
}

// New validates every input and derives bounds, road profile and objective.
// Nothing is integrated until an evaluation is requested.
func New(cfg *config.Config, logger *zap.Logger) (*Experiment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	consts := cfg.Constants()
	limits, err := physics.ComputeLimits(consts, cfg.SuspensionRange(), cfg.TireRange())
	if err != nil {
		return nil, fmt.Errorf("stiffness bounds: %w", err)
	}

	ramp, err := physics.NewRamp(cfg.Road.Speed, cfg.Road.RampHeight, cfg.Road.RampAngle)
	if err != nil {
		return nil, fmt.Errorf("road profile: %w", err)
	}

	obj, err := objective.New(objective.Problem{
		Consts:      consts,
		Limits:      limits,
		Road:        ramp,
		Times:       cfg.TimeGrid(),
		Integration: cfg.IntegrationOptions(),
		Settings:    cfg.ObjectiveSettings(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("objective: %w", err)
	}

	logger.Debug("experiment ready",
		zap.Stringer("k1_bounds", limits.Suspension),
		zap.Stringer("k2_bounds", limits.Tire),
		zap.Float64("ramp_time", ramp.TraversalTime))

	return &Experiment{
		cfg:    cfg,
		consts: consts,
		limits: limits,
		ramp:   ramp,
		obj:    obj,
		logger: logger,
	}, nil
}

func (e *Experiment) Limits() physics.Limits { return e.limits }

func (e *Experiment) Ramp() *physics.Ramp { return e.ramp }

func (e *Experiment) Objective() *objective.Objective { return e.obj }

// InitialGuess is the configured starting point, with unset stiffnesses
// taken from the lower bounds.
func (e *Experiment) InitialGuess() physics.Params {
	g := e.cfg.Search.InitialGuess
	p := physics.Params{K1: g.K1, C1: g.C1, K2: g.K2}
	if p.K1 == 0 {
		p.K1 = e.limits.Suspension.Min
	}
	if p.K2 == 0 {
		p.K2 = e.limits.Tire.Min
	}
	return p
}

// Result is the outcome of a search. Feasible reports whether both
// stiffnesses ended inside their bounds; the search does not force it.
type Result struct {
	Params       physics.Params  `json:"params"`
	Score        objective.Score `json:"score"`
	Initial      physics.Params  `json:"initial"`
	InitialScore objective.Score `json:"initial_score"`
	Feasible     bool            `json:"feasible"`
	Converged    bool            `json:"converged"`
	Status       string          `json:"status"`
	Iterations   int             `json:"iterations"`
	Evaluations  int             `json:"evaluations"`
}

// Sweep evaluates a coarse grid over the stiffness bounds and the
// configured damping range, with points per axis.
func (e *Experiment) Sweep(ctx context.Context, points int) (physics.Params, float64, error) {
	dr := e.cfg.Search.DampingRange
	axes := [][]float64{
		optim.Linspace(e.limits.Suspension.Min, e.limits.Suspension.Max, points),
		optim.Linspace(dr[0], dr[1], points),
		optim.Linspace(e.limits.Tire.Min, e.limits.Tire.Max, points),
	}
	x, v, err := optim.NewGridSearch(axes, e.cfg.Search.Workers).Search(ctx, e.obj.Func)
	if err != nil {
		return physics.Params{}, 0, fmt.Errorf("grid sweep: %w", err)
	}
	return physics.ParamsFromSlice(x), v, nil
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	guess := e.InitialGuess()
	guessScore := e.obj.Breakdown(guess)
	start, startScore := guess, guessScore.Total

	if n := e.cfg.Search.GridPoints; n > 0 {
		best, v, err := e.Sweep(ctx, n)
		if err != nil {
			return nil, err
		}
		e.logger.Info("grid sweep finished", zap.Int("points", n*n*n), zap.Stringer("best", best), zap.Float64("score", v))
		if v < startScore {
			start, startScore = best, v
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nm := optim.NewNelderMead(e.logger)
	nm.MaxIterations = e.cfg.Search.MaxIterations
	nm.MaxEvaluations = e.cfg.Search.MaxEvaluations
	nm.FuncTolerance = e.cfg.Search.FuncTolerance
	nm.StallIterations = e.cfg.Search.StallIterations
	nm.SimplexScale = e.cfg.Search.SimplexScale

	e.logger.Info("starting simplex search", zap.Stringer("start", start), zap.Float64("score", startScore))
	res, err := nm.Minimize(e.obj.Func, start.Slice())
	if err != nil {
		return nil, err
	}

	params := physics.ParamsFromSlice(res.X)
	out := &Result{
		Params:       params,
		Score:        e.obj.Breakdown(params),
		Initial:      guess,
		InitialScore: guessScore,
		Feasible:     e.limits.Suspension.Contains(params.K1) && e.limits.Tire.Contains(params.K2),
		Converged:    res.Converged,
		Status:       res.Status,
		Iterations:   res.Iterations,
		Evaluations:  res.Evaluations,
	}
	if !out.Feasible {
		e.logger.Warn("search ended outside the stiffness bounds", zap.Stringer("params", params))
	}
	if !out.Converged {
		e.logger.Warn("search stopped before converging", zap.String("status", out.Status))
	}
	return out, nil
}
