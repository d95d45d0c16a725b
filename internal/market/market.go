// Package market standardizes payloads shared between data ingestion, resampling, and analytics layers.
package market

import (
	"fmt"
	"time"
)

// Tick models a single trade print as delivered by a feed.
type Tick struct {
	Symbol string
	Price  float64
	Size   float64
	Ts     time.Time
}

// Bar aggregates the trades of one time bucket into an OHLCV summary.
type Bar struct {
	Symbol    string
	Timeframe time.Duration
	Start     time.Time // bucket start, truncated to Timeframe
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	TickCount int
}

// End returns the exclusive end of the bar's bucket.
func (b Bar) End() time.Time { return b.Start.Add(b.Timeframe) }

// Validate checks the OHLC ordering invariant.
func (b Bar) Validate() error {
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar %s %s@%s violates low<=open,close<=high", b.Symbol, b.Timeframe, b.Start)
	}
	return nil
}

// BarSeries is an ordered run of bars for one (symbol, timeframe),
// strictly increasing by Start. Gaps are allowed; consumers align
// series by intersecting buckets rather than assuming contiguity.
type BarSeries []Bar

// Closes extracts the close prices in series order.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Bucket truncates ts down to the start of its timeframe bucket.
func Bucket(ts time.Time, timeframe time.Duration) time.Time {
	return ts.Truncate(timeframe)
}

// ParseTimeframe converts a config token such as "1s", "1m", or "5m"
// into a duration, rejecting non-positive results.
func ParseTimeframe(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse timeframe %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeframe %q must be positive", s)
	}
	return d, nil
}

// FormatTimeframe renders a duration in the compact form used by
// config files and exports ("1s", "1m", "5m", "1h30m").
func FormatTimeframe(d time.Duration) string {
	s := d.String()
	for _, suffix := range []string{"m0s", "h0m"} {
		if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
			s = s[:len(s)-2]
		}
	}
	return s
}
