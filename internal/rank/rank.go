// Package rank computes PageRank by power iteration over a dense,
// row-stochastic weight matrix.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Config bounds the iteration.
type Config struct {
	Delta         float64
	MaxIterations int
}

// Result is the rank vector and how it was reached.
type Result struct {
	Ranks      []float64
	Iterations int
	Residual   float64
	Converged  bool
}

// Solve iterates curr[e] = sum over s of w[s][e] * prev[s], starting from
// prev = 0 and curr = 1/N, until the Euclidean distance between successive
// vectors is at most cfg.Delta or cfg.MaxIterations is reached. w must be
// square; w[s] is the row of weights out of document s.
func Solve(ctx context.Context, w [][]float64, cfg Config) (*Result, error) {
	n := len(w)
	for i, row := range w {
		if len(row) != n {
			return nil, fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if n == 0 {
		return &Result{Converged: true}, nil
	}

	logger := slog.Default().With("component", "rank")
	prev := make([]float64, n)
	curr := make([]float64, n)
	for i := range curr {
		curr[i] = 1 / float64(n)
	}

	res := &Result{Residual: Distance(prev, curr)}
	for res.Residual > cfg.Delta {
		if res.Iterations >= cfg.MaxIterations {
			logger.Warn("pagerank stopped before converging",
				"iterations", res.Iterations,
				"residual", res.Residual,
				"delta", cfg.Delta,
			)
			res.Ranks = curr
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, curr = curr, prev
		step(w, prev, curr)
		res.Iterations++
		res.Residual = Distance(prev, curr)
	}
	res.Converged = true
	res.Ranks = curr
	logger.Info("pagerank converged", "iterations", res.Iterations, "residual", res.Residual, "documents", n)
	return res, nil
}

// step writes w^T * prev into curr.
func step(w [][]float64, prev, curr []float64) {
	for e := range curr {
		curr[e] = 0
	}
	for s, row := range w {
		p := prev[s]
		if p == 0 {
			continue
		}
		for e, weight := range row {
			curr[e] += weight * p
		}
	}
}

// Distance returns the Euclidean distance between a and b, which must have
// equal length.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
