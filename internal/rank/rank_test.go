package rank

import (
	"context"
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// threeDocs is A->B, B->C, C dangling, with epsilon 0.15.
func threeDocs() [][]float64 {
	const eps, n = 0.15, 3.0
	base := eps / n
	link := base + (1-eps)/1
	dangling := base + (1-eps)/2
	return [][]float64{
		{base, link, base},
		{base, base, link},
		{dangling, dangling, base},
	}
}

func TestSolveThreeDocuments(t *testing.T) {
	res, err := Solve(context.Background(), threeDocs(), Config{Delta: 0.001, MaxIterations: 1000})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !res.Converged {
		t.Fatalf("did not converge after %d iterations", res.Iterations)
	}
	if math.Abs(sum(res.Ranks)-1) > tolerance {
		t.Errorf("ranks sum to %v, want 1", sum(res.Ranks))
	}
	if res.Residual > 0.001 {
		t.Errorf("residual = %v, want <= delta", res.Residual)
	}
	// Nothing links to A except teleport and C's dangling mass.
	if !(res.Ranks[1] > res.Ranks[0] && res.Ranks[2] > res.Ranks[0]) {
		t.Errorf("ranks = %v, want A lowest", res.Ranks)
	}
}

func TestSolveResidualNonIncreasing(t *testing.T) {
	w := threeDocs()
	prev := make([]float64, 3)
	curr := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	last := Distance(prev, curr)
	for i := 0; i < 20; i++ {
		prev, curr = curr, prev
		step(w, prev, curr)
		d := Distance(prev, curr)
		if d > last+tolerance {
			t.Fatalf("iteration %d: residual grew from %v to %v", i, last, d)
		}
		last = d
	}
}

func TestSolveSingleDocument(t *testing.T) {
	res, err := Solve(context.Background(), [][]float64{{1}}, Config{Delta: 0.001, MaxIterations: 10})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Ranks) != 1 || math.Abs(res.Ranks[0]-1) > tolerance {
		t.Errorf("ranks = %v, want [1]", res.Ranks)
	}
}

func TestSolveEmpty(t *testing.T) {
	res, err := Solve(context.Background(), nil, Config{Delta: 0.001, MaxIterations: 10})
	if err != nil || len(res.Ranks) != 0 || !res.Converged {
		t.Fatalf("Solve(nil) = %+v, %v", res, err)
	}
}

func TestSolveIterationCap(t *testing.T) {
	res, err := Solve(context.Background(), threeDocs(), Config{Delta: 1e-300, MaxIterations: 3})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Converged || res.Iterations != 3 {
		t.Errorf("converged = %v iterations = %d, want false and 3", res.Converged, res.Iterations)
	}
	if len(res.Ranks) != 3 {
		t.Errorf("ranks = %v", res.Ranks)
	}
}

func TestSolveRejectsRaggedMatrix(t *testing.T) {
	if _, err := Solve(context.Background(), [][]float64{{1, 0}, {1}}, Config{Delta: 0.1, MaxIterations: 1}); err == nil {
		t.Fatal("expected error for ragged matrix")
	}
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, threeDocs(), Config{Delta: 0.001, MaxIterations: 100})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDistance(t *testing.T) {
	if d := Distance([]float64{0, 0}, []float64{3, 4}); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
}

func BenchmarkSolve(b *testing.B) {
	const n = 200
	w := make([][]float64, n)
	for s := range w {
		w[s] = make([]float64, n)
		for e := range w[s] {
			w[s][e] = 0.15 / n
		}
		w[s][(s+1)%n] += 0.85
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Solve(context.Background(), w, Config{Delta: 0.001, MaxIterations: 1000}); err != nil {
			b.Fatal(err)
		}
	}
}
