package analytics

import (
	"math"
	"testing"
)

func TestRollingZScoreKnownValues(t *testing.T) {
	z := RollingZScore([]float64{1, 2, 3, 4}, 3)
	if !math.IsNaN(z[0]) || !math.IsNaN(z[1]) {
		t.Fatalf("expected NaN before window fills, got %v", z)
	}
	// Window [1,2,3]: mean 2, sample std 1.
	if math.Abs(z[2]-1) > 1e-12 || math.Abs(z[3]-1) > 1e-12 {
		t.Fatalf("unexpected z-scores: %v", z)
	}
}

func TestRollingZScoreConstantSeriesIsNaN(t *testing.T) {
	xs := make([]float64, 20)
	for i := range xs {
		xs[i] = 42
	}
	for i, z := range RollingZScore(xs, 5) {
		if !math.IsNaN(z) {
			t.Fatalf("expected NaN at %d for zero-variance window, got %v", i, z)
		}
	}
}

func TestRollingZScorePropagatesNaNInput(t *testing.T) {
	xs := []float64{1, math.NaN(), 3, 4, 5}
	z := RollingZScore(xs, 3)
	// Windows touching index 1 stay NaN; the window [3,4,5] is clean.
	if !math.IsNaN(z[2]) || !math.IsNaN(z[3]) {
		t.Fatalf("expected NaN for windows containing NaN, got %v", z)
	}
	if math.IsNaN(z[4]) {
		t.Fatalf("expected computed z at index 4, got NaN")
	}
}

func TestRollingCorrelationSigns(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	up := []float64{2, 4, 6, 8, 10}
	down := []float64{10, 8, 6, 4, 2}

	pos := RollingCorrelation(a, up, 3)
	neg := RollingCorrelation(a, down, 3)
	for i := 2; i < len(a); i++ {
		if math.Abs(pos[i]-1) > 1e-12 {
			t.Fatalf("expected corr 1 at %d, got %v", i, pos[i])
		}
		if math.Abs(neg[i]+1) > 1e-12 {
			t.Fatalf("expected corr -1 at %d, got %v", i, neg[i])
		}
	}
	if !math.IsNaN(pos[0]) || !math.IsNaN(pos[1]) {
		t.Fatalf("expected NaN before window fills: %v", pos)
	}
}

func TestRollingCorrelationDegenerate(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	flat := []float64{7, 7, 7, 7}
	for i, c := range RollingCorrelation(a, flat, 3) {
		if !math.IsNaN(c) {
			t.Fatalf("expected NaN at %d for flat leg, got %v", i, c)
		}
	}
}

func TestRollingVolatility(t *testing.T) {
	// Constant growth rate: log returns identical, so the rolling
	// stdev collapses to zero once the window fills.
	prices := []float64{100, 110, 121, 133.1}
	vol := RollingVolatility(prices, 3)
	if !math.IsNaN(vol[0]) || !math.IsNaN(vol[1]) || !math.IsNaN(vol[2]) {
		t.Fatalf("expected NaN before return window fills: %v", vol)
	}
	if math.Abs(vol[3]) > 1e-12 {
		t.Fatalf("expected zero volatility for constant growth, got %v", vol[3])
	}
}
