package optim

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// recorder logs each simplex iteration at debug level.
type recorder struct {
	logger *zap.Logger
}

func (r *recorder) Init() error { return nil }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	r.logger.Debug("simplex iteration",
		zap.Int("iteration", stats.MajorIterations),
		zap.Int("evaluations", stats.FuncEvaluations),
		zap.Float64s("x", loc.X),
		zap.Float64("f", loc.F))
	return nil
}
