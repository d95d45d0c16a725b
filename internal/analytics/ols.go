// Package analytics computes the stat-arb signal set (hedge ratio,
// spread, rolling z-score, rolling correlation, ADF stationarity) from
// two aligned bar series.
package analytics

import (
	"fmt"
	"math"
)

// HedgeRatio fits close_a = α + β·close_b by ordinary least squares and
// returns the slope β. window > 0 restricts the fit to the trailing
// window points. ok is false when fewer than two points are available
// or close_b has zero variance; β is NaN in that case.
func HedgeRatio(a, b []float64, window int) (beta float64, ok bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	lo := 0
	if window > 0 && n > window {
		lo = n - window
	}
	a, b = a[lo:n], b[lo:n]
	n = len(a)
	if n < 2 {
		return math.NaN(), false
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varB += db * db
	}
	if varB == 0 {
		return math.NaN(), false
	}
	return cov / varB, true
}

// Spread computes a[i] − β·b[i] for every index. A NaN β (hedge ratio
// unavailable) yields an all-NaN spread, which downstream rolling
// statistics and the alert evaluator treat as "not computed".
func Spread(a, b []float64, beta float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - beta*b[i]
	}
	return out
}

// olsFit solves y = X·coef by least squares via the normal equations,
// returning the coefficients, their standard errors, and the residual
// sum of squares. X is row-major with the intercept column included by
// the caller. Fails on singular designs or non-positive degrees of
// freedom. The design matrices here are tiny (ADF lag structures), so
// Gauss-Jordan on X'X is plenty.
func olsFit(x [][]float64, y []float64) (coef, stderr []float64, ssr float64, err error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, nil, 0, fmt.Errorf("ols: empty or mismatched sample")
	}
	k := len(x[0])
	if n <= k {
		return nil, nil, 0, fmt.Errorf("ols: %d observations for %d regressors", n, k)
	}

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for _, row := range x {
		if len(row) != k {
			return nil, nil, 0, fmt.Errorf("ols: ragged design matrix")
		}
	}
	for r := 0; r < n; r++ {
		for i := 0; i < k; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invert(xtx)
	if err != nil {
		return nil, nil, 0, err
	}

	coef = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	for r := 0; r < n; r++ {
		fitted := 0.0
		for i := 0; i < k; i++ {
			fitted += x[r][i] * coef[i]
		}
		resid := y[r] - fitted
		ssr += resid * resid
	}

	sigma2 := ssr / float64(n-k)
	stderr = make([]float64, k)
	for i := 0; i < k; i++ {
		stderr[i] = math.Sqrt(sigma2 * inv[i][i])
	}
	return coef, stderr, ssr, nil
}

// invert computes the inverse of a small symmetric positive matrix by
// Gauss-Jordan elimination with partial pivoting.
func invert(m [][]float64) ([][]float64, error) {
	k := len(m)
	aug := make([][]float64, k)
	for i := 0; i < k; i++ {
		aug[i] = make([]float64, 2*k)
		copy(aug[i], m[i])
		aug[i][k+i] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("ols: singular design matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		scale := aug[col][col]
		for j := 0; j < 2*k; j++ {
			aug[col][j] /= scale
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*k; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, k)
	for i := 0; i < k; i++ {
		inv[i] = aug[i][k:]
	}
	return inv, nil
}
