package analytics

import "math"

// ADFResult reports an Augmented Dickey–Fuller test. OK is false when
// the sample is too short (or degenerate) to run the regression; every
// other field is undefined in that case.
type ADFResult struct {
	Stat       float64 // t-statistic on γ in Δs[t] = α + γ·s[t−1] + Σ δ_k·Δs[t−k] + ε
	Lag        int     // lag order selected by AIC
	NObs       int     // observations in the final regression
	Crit1      float64 // MacKinnon (2010) critical values, constant-only regression
	Crit5      float64
	Crit10     float64
	Stationary bool // Stat < Crit5, i.e. unit root rejected at 5%
	OK         bool
}

// MacKinnon (2010) response-surface coefficients for the constant-only
// Dickey–Fuller distribution: crit = b0 + b1/T + b2/T² + b3/T³.
var mackinnonConstant = [3][4]float64{
	{-3.43035, -6.5393, -16.786, -79.433}, // 1%
	{-2.86154, -2.8903, -4.234, -40.040},  // 5%
	{-2.56677, -1.5384, -2.809, 0},        // 10%
}

// ADF runs the Augmented Dickey–Fuller test with a constant term on the
// given series. maxLag <= 0 selects the Schwert rule 12·(n/100)^¼; the
// lag order is then chosen by minimizing AIC over 0..maxLag on a common
// sample, as in statsmodels' autolag, and the final regression is refit
// on the full sample usable at the chosen lag. Deterministic throughout.
func ADF(series []float64, maxLag int) ADFResult {
	insufficient := ADFResult{Stat: math.NaN()}

	n := len(series)
	for _, v := range series {
		if math.IsNaN(v) {
			return insufficient
		}
	}
	nd := n - 1 // available first differences
	if nd < 4 {
		return insufficient
	}

	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	// Keep enough observations to fit the largest candidate design.
	if limit := (nd - 3) / 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return insufficient
	}

	diffs := make([]float64, nd)
	for i := 0; i < nd; i++ {
		diffs[i] = series[i+1] - series[i]
	}

	// Lag selection by AIC on the common sample t = maxLag..nd-1.
	bestLag, bestAIC := 0, math.Inf(1)
	m := nd - maxLag
	for lag := 0; lag <= maxLag; lag++ {
		x, y := adfDesign(series, diffs, lag, maxLag)
		_, _, ssr, err := olsFit(x, y)
		if err != nil || ssr <= 0 {
			continue
		}
		aic := float64(m)*math.Log(ssr/float64(m)) + 2*float64(lag+2)
		if aic < bestAIC {
			bestAIC, bestLag = aic, lag
		}
	}
	if math.IsInf(bestAIC, 1) {
		return insufficient
	}

	// Final fit at the chosen lag over every usable observation.
	x, y := adfDesign(series, diffs, bestLag, bestLag)
	coef, stderr, _, err := olsFit(x, y)
	if err != nil || stderr[1] == 0 {
		return insufficient
	}

	res := ADFResult{
		Stat: coef[1] / stderr[1],
		Lag:  bestLag,
		NObs: len(y),
		OK:   true,
	}
	t := float64(res.NObs)
	crits := [3]float64{}
	for i, b := range mackinnonConstant {
		crits[i] = b[0] + b[1]/t + b[2]/(t*t) + b[3]/(t*t*t)
	}
	res.Crit1, res.Crit5, res.Crit10 = crits[0], crits[1], crits[2]
	res.Stationary = res.Stat < res.Crit5
	return res
}

// adfDesign builds the regression sample for one candidate lag. Rows
// run over diff indices t = start..len(diffs)-1 with regressors
// [1, level[t], Δ[t−1], …, Δ[t−lag]] and response Δ[t].
func adfDesign(series, diffs []float64, lag, start int) (x [][]float64, y []float64) {
	nd := len(diffs)
	for t := start; t < nd; t++ {
		row := make([]float64, 0, lag+2)
		row = append(row, 1, series[t])
		for k := 1; k <= lag; k++ {
			row = append(row, diffs[t-k])
		}
		x = append(x, row)
		y = append(y, diffs[t])
	}
	return x, y
}
