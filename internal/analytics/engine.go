package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
)

// ErrNoOverlap is returned when the two series share no common buckets;
// a recompute fails fast rather than producing an empty-but-valid snapshot.
var ErrNoOverlap = errors.New("series share no common buckets")

// Options tunes one analytics computation.
type Options struct {
	Window     int // rolling window in bars, >= 2
	BetaWindow int // trailing bars for the hedge ratio, 0 = whole aligned series
	ADFMaxLag  int // 0 = Schwert rule
}

// Snapshot is the full signal set for one recompute. It is immutable:
// each recompute builds a fresh one, series included. NaN inside a
// series means "not yet available" for that index; the boolean flags
// (BetaOK, ADF.OK) distinguish "not computed" from computed scalars.
type Snapshot struct {
	AsOf      time.Time // latest aligned bucket
	Timeframe time.Duration
	Window    int

	Buckets      []time.Time
	PrimaryClose []float64
	HedgeClose   []float64

	Beta   float64
	BetaOK bool

	Spread      []float64
	ZScore      []float64
	Correlation []float64
	Volatility  []float64 // rolling stdev of primary log returns

	ADF ADFResult
}

// LatestZScore returns the last non-NaN rolling z-score, ok=false when
// no index has one yet.
func (s *Snapshot) LatestZScore() (float64, bool) {
	for i := len(s.ZScore) - 1; i >= 0; i-- {
		if !math.IsNaN(s.ZScore[i]) {
			return s.ZScore[i], true
		}
	}
	return math.NaN(), false
}

// Compute aligns the two bar series on bucket start and derives the
// signal set. Buckets present in only one series are dropped from the
// analysis set. Insufficient or degenerate data never fails the call;
// it surfaces as NaN series values and cleared OK flags. The only hard
// error is a complete alignment mismatch.
func Compute(primary, hedge market.BarSeries, opts Options) (*Snapshot, error) {
	if opts.Window < 2 {
		return nil, fmt.Errorf("window must be at least 2, got %d", opts.Window)
	}

	buckets, a, b := align(primary, hedge)
	if len(buckets) == 0 {
		return nil, ErrNoOverlap
	}

	snap := &Snapshot{
		AsOf:         buckets[len(buckets)-1],
		Timeframe:    primary[0].Timeframe,
		Window:       opts.Window,
		Buckets:      buckets,
		PrimaryClose: a,
		HedgeClose:   b,
	}

	snap.Beta, snap.BetaOK = HedgeRatio(a, b, opts.BetaWindow)
	snap.Spread = Spread(a, b, snap.Beta)
	snap.ZScore = RollingZScore(snap.Spread, opts.Window)
	snap.Correlation = RollingCorrelation(a, b, opts.Window)
	snap.Volatility = RollingVolatility(a, opts.Window)

	if snap.BetaOK {
		snap.ADF = ADF(snap.Spread, opts.ADFMaxLag)
	} else {
		snap.ADF = ADFResult{Stat: math.NaN()}
	}
	return snap, nil
}

// align intersects the two series on bucket start, preserving order.
// Both inputs are ordered by bucket, so a two-pointer merge suffices.
func align(primary, hedge market.BarSeries) (buckets []time.Time, a, b []float64) {
	i, j := 0, 0
	for i < len(primary) && j < len(hedge) {
		pi, hj := primary[i].Start, hedge[j].Start
		switch {
		case pi.Before(hj):
			i++
		case hj.Before(pi):
			j++
		default:
			buckets = append(buckets, pi)
			a = append(a, primary[i].Close)
			b = append(b, hedge[j].Close)
			i++
			j++
		}
	}
	return buckets, a, b
}
