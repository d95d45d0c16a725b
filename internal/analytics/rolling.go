package analytics

import "math"

// Rolling statistics use the sample standard deviation (ddof = 1),
// matching the conventions of the research notebooks this service
// replaced. Indices with fewer than window preceding points are NaN:
// "not yet available", never zero.

// RollingZScore standardizes each point against the trailing window's
// mean and sample standard deviation. Zero-variance windows yield NaN
// rather than a division blow-up.
func RollingZScore(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		mean, std, ok := meanStd(xs[i-window+1 : i+1])
		if !ok || std == 0 {
			continue
		}
		out[i] = (xs[i] - mean) / std
	}
	return out
}

// RollingCorrelation computes the trailing-window Pearson correlation
// of two equal-length series, NaN where either side is degenerate.
func RollingCorrelation(a, b []float64, window int) []float64 {
	n := len(a)
	out := nanSlice(n)
	if window < 2 || len(b) != n {
		return out
	}
	for i := window - 1; i < n; i++ {
		out[i] = pearson(a[i-window+1:i+1], b[i-window+1:i+1])
	}
	return out
}

// RollingVolatility is the trailing sample standard deviation of log
// returns of the price series. The first return is undefined, so the
// earliest window indices stay NaN one point longer than the z-score.
func RollingVolatility(prices []float64, window int) []float64 {
	n := len(prices)
	returns := nanSlice(n)
	for i := 1; i < n; i++ {
		if prices[i] > 0 && prices[i-1] > 0 {
			returns[i] = math.Log(prices[i] / prices[i-1])
		}
	}

	out := nanSlice(n)
	if window < 2 {
		return out
	}
	for i := window; i < n; i++ {
		_, std, ok := meanStd(returns[i-window+1 : i+1])
		if ok {
			out[i] = std
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// meanStd returns the mean and sample standard deviation of xs,
// reporting ok=false when xs contains NaN or fewer than two points.
func meanStd(xs []float64) (mean, std float64, ok bool) {
	n := len(xs)
	if n < 2 {
		return 0, 0, false
	}
	for _, x := range xs {
		if math.IsNaN(x) {
			return 0, 0, false
		}
		mean += x
	}
	mean /= float64(n)

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1)), true
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n < 2 {
		return math.NaN()
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			return math.NaN()
		}
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varA*varB)
}
