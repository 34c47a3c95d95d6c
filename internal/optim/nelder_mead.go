package optim

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/suspopt/internal/dynamo"
)

const (
	DefaultMaxIterations   = 600
	DefaultMaxEvaluations  = 1200
	DefaultFuncTolerance   = 1e-8
	DefaultStallIterations = 50
	DefaultSimplexScale    = 0.05

	// zeroSimplexStep offsets coordinates that start at exactly zero, where a
	// relative offset would collapse the simplex.
	zeroSimplexStep = 0.00025
)

// NelderMead minimises a function with the downhill simplex method. It uses
// no derivatives, so flat penalty steps in the objective do not stall it.
type NelderMead struct {
	// MaxIterations caps simplex iterations.
	MaxIterations int
	// MaxEvaluations caps objective calls, excluding the initial simplex.
	MaxEvaluations int
	// FuncTolerance is the absolute and relative improvement of the best
	// value that must be seen within StallIterations iterations.
	FuncTolerance   float64
	StallIterations int
	// SimplexScale is the relative size of the initial simplex.
	SimplexScale float64

	logger *zap.Logger
}

func NewNelderMead(logger *zap.Logger) *NelderMead {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NelderMead{
		MaxIterations:   DefaultMaxIterations,
		MaxEvaluations:  DefaultMaxEvaluations,
		FuncTolerance:   DefaultFuncTolerance,
		StallIterations: DefaultStallIterations,
		SimplexScale:    DefaultSimplexScale,
		logger:          logger,
	}
}

func (n *NelderMead) Validate() error {
	if n.MaxIterations <= 0 || n.MaxEvaluations <= 0 {
		return dynamo.Invalid("search limits must be positive, got iterations=%d evaluations=%d",
			n.MaxIterations, n.MaxEvaluations)
	}
	if n.FuncTolerance < 0 || n.StallIterations <= 0 {
		return dynamo.Invalid("convergence settings invalid, got tolerance=%g stall=%d",
			n.FuncTolerance, n.StallIterations)
	}
	if !(n.SimplexScale > 0) {
		return dynamo.Invalid("simplex scale must be positive, got %g", n.SimplexScale)
	}
	return nil
}

// Result is the best point found. Converged is false when a limit stopped
// the search first; X is still the best point seen.
type Result struct {
	X           []float64
	F           float64
	Converged   bool
	Status      string
	Iterations  int
	Evaluations int
}

// Minimize searches from x0. The returned value is never worse than f(x0).
func (n *NelderMead) Minimize(f func([]float64) float64, x0 []float64) (*Result, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return nil, fmt.Errorf("%w: empty initial point", dynamo.ErrDimensionMismatch)
	}
	if !dynamo.State(x0).IsValid() {
		return nil, dynamo.Invalid("initial point %v is not finite", x0)
	}

	vertices := n.initialSimplex(x0)
	values := make([]float64, len(vertices))
	for i, v := range vertices {
		values[i] = f(v)
	}
	f0 := values[0]

	method := &optimize.NelderMead{
		InitialVertices: vertices,
		InitialValues:   values,
	}
	settings := &optimize.Settings{
		MajorIterations: n.MaxIterations,
		FuncEvaluations: n.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   n.FuncTolerance,
			Relative:   n.FuncTolerance,
			Iterations: n.StallIterations,
		},
		Recorder: &recorder{logger: n.logger},
	}

	res, err := optimize.Minimize(optimize.Problem{Func: f}, x0, settings, method)
	if res == nil {
		return nil, fmt.Errorf("simplex search: %w", err)
	}
	if err != nil && !limitReached(res.Status) {
		return nil, fmt.Errorf("simplex search (%s): %w", res.Status, err)
	}

	out := &Result{
		X:           append([]float64(nil), res.X...),
		F:           res.F,
		Converged:   converged(res.Status),
		Status:      res.Status.String(),
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations + len(vertices),
	}
	if math.IsNaN(out.F) || out.F > f0 {
		out.X = append([]float64(nil), x0...)
		out.F = f0
	}

	n.logger.Info("simplex search finished",
		zap.String("status", out.Status),
		zap.Bool("converged", out.Converged),
		zap.Int("iterations", out.Iterations),
		zap.Int("evaluations", out.Evaluations),
		zap.Float64("score", out.F))

	return out, nil
}

// initialSimplex offsets each coordinate of x0 by SimplexScale of its own
// magnitude, so parameters of very different scale move together.
func (n *NelderMead) initialSimplex(x0 []float64) [][]float64 {
	dim := len(x0)
	vertices := make([][]float64, dim+1)
	vertices[0] = append([]float64(nil), x0...)
	for k := 0; k < dim; k++ {
		v := append([]float64(nil), x0...)
		if v[k] != 0 {
			v[k] *= 1 + n.SimplexScale
		} else {
			v[k] = zeroSimplexStep
		}
		vertices[k+1] = v
	}
	return vertices
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.StepConvergence, optimize.FunctionThreshold:
		return true
	}
	return false
}

func limitReached(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}
