package optim

import (
	"context"
	"errors"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/suspopt/internal/dynamo"
)

const maxGridPoints = 1 << 20

// ErrNoPoints is returned by GridSearch when an axis is empty.
var ErrNoPoints = errors.New("optim: grid has no points")

// GridSearch evaluates every point of a Cartesian grid. Evaluations run
// concurrently and must not share mutable state.
type GridSearch struct {
	axes    [][]float64
	workers int
}

// NewGridSearch builds a search over the given axes. workers <= 0 uses one
// worker per CPU.
func NewGridSearch(axes [][]float64, workers int) *GridSearch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &GridSearch{axes: axes, workers: workers}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func (g *GridSearch) size() int {
	if len(g.axes) == 0 {
		return 0
	}
	n := 1
	for _, ax := range g.axes {
		n *= len(ax)
		if n == 0 || n > maxGridPoints {
			return n
		}
	}
	return n
}

// point decodes a flat index with the last axis varying fastest.
func (g *GridSearch) point(idx int) []float64 {
	x := make([]float64, len(g.axes))
	for d := len(g.axes) - 1; d >= 0; d-- {
		n := len(g.axes[d])
		x[d] = g.axes[d][idx%n]
		idx /= n
	}
	return x
}

// Search returns the grid point with the lowest value. Ties go to the point
// that comes first in grid order.
func (g *GridSearch) Search(ctx context.Context, f func([]float64) float64) ([]float64, float64, error) {
	total := g.size()
	if total == 0 {
		return nil, math.Inf(1), ErrNoPoints
	}
	if total > maxGridPoints {
		return nil, math.Inf(1), dynamo.Invalid("grid of %d points exceeds %d", total, maxGridPoints)
	}

	values := make([]float64, total)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for idx := 0; idx < total; idx++ {
		if gctx.Err() != nil {
			break
		}
		idx := idx
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values[idx] = f(g.point(idx))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, math.Inf(1), err
	}
	if err := ctx.Err(); err != nil {
		return nil, math.Inf(1), err
	}

	best := 0
	for i, v := range values {
		if v < values[best] || math.IsNaN(values[best]) {
			best = i
		}
	}
	return g.point(best), values[best], nil
}
