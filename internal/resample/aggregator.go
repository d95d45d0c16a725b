// Package resample turns the raw tick stream into fixed-interval OHLC bars.
package resample

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/metrics"
)

// ErrOutOfOrder marks ticks that arrive for a bucket that has already
// been closed and emitted. Such ticks are dropped, never merged.
var ErrOutOfOrder = errors.New("tick for already-closed bucket")

// OutOfOrderError carries the rejected tick's slot and bucket for logging.
type OutOfOrderError struct {
	Symbol    string
	Timeframe time.Duration
	Bucket    time.Time
	Watermark time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order tick %s %s: bucket %s closed at watermark %s",
		e.Symbol, market.FormatTimeframe(e.Timeframe), e.Bucket.Format(time.RFC3339Nano), e.Watermark.Format(time.RFC3339Nano))
}

func (e *OutOfOrderError) Unwrap() error { return ErrOutOfOrder }

// Aggregator maintains one open bar per (symbol, timeframe) slot and
// emits bars as their buckets close. A single tick updates the open bar
// of every configured timeframe. Slots lock independently, so ingestion
// for one pair never blocks another.
//
// Lateness policy: a bucket hard-closes once the slot watermark (max
// tick timestamp seen) reaches bucket end + grace. With grace zero a
// bar closes exactly when the first tick of a later bucket arrives.
// Ticks for hard-closed buckets are rejected with OutOfOrderError.
type Aggregator struct {
	timeframes []time.Duration
	grace      time.Duration
	log        zerolog.Logger

	mu    sync.Mutex
	slots map[slotKey]*slot
}

type slotKey struct {
	symbol    string
	timeframe time.Duration
}

type slot struct {
	mu        sync.Mutex
	open      map[time.Time]*market.Bar // live buckets; at most a couple while grace holds one ajar
	watermark time.Time
}

// New builds an aggregator for the given timeframes and lateness window.
func New(timeframes []time.Duration, grace time.Duration, log zerolog.Logger) *Aggregator {
	if grace < 0 {
		grace = 0
	}
	tfs := make([]time.Duration, len(timeframes))
	copy(tfs, timeframes)
	return &Aggregator{
		timeframes: tfs,
		grace:      grace,
		log:        log,
		slots:      make(map[slotKey]*slot),
	}
}

// Ingest folds one tick into every configured timeframe for its symbol
// and returns the bars the tick caused to close, ordered by timeframe
// then bucket. A rejected tick reports ErrOutOfOrder for the offending
// slot; other slots still process the tick, so the error is advisory.
func (a *Aggregator) Ingest(tick market.Tick) ([]market.Bar, error) {
	if tick.Symbol == "" || tick.Price <= 0 || tick.Size < 0 {
		return nil, fmt.Errorf("invalid tick %+v", tick)
	}

	var closed []market.Bar
	var firstErr error
	for _, tf := range a.timeframes {
		emitted, err := a.slot(tick.Symbol, tf).ingest(tick, tf, a.grace)
		if err != nil {
			metrics.TicksOutOfOrderTotal.WithLabelValues(tick.Symbol, market.FormatTimeframe(tf)).Inc()
			a.log.Warn().Err(err).Msg("dropped tick")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, bar := range emitted {
			metrics.BarsClosedTotal.WithLabelValues(bar.Symbol, market.FormatTimeframe(bar.Timeframe)).Inc()
		}
		closed = append(closed, emitted...)
	}
	return closed, firstErr
}

// Flush force-closes every live bar in one (symbol, timeframe) slot,
// regardless of the watermark. Used at shutdown or timeframe change.
func (a *Aggregator) Flush(symbol string, timeframe time.Duration) []market.Bar {
	return a.slot(symbol, timeframe).flush()
}

// FlushAll force-closes every live bar across all slots.
func (a *Aggregator) FlushAll() []market.Bar {
	a.mu.Lock()
	slots := make([]*slot, 0, len(a.slots))
	for _, s := range a.slots {
		slots = append(slots, s)
	}
	a.mu.Unlock()

	var out []market.Bar
	for _, s := range slots {
		out = append(out, s.flush()...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		if out[i].Timeframe != out[j].Timeframe {
			return out[i].Timeframe < out[j].Timeframe
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func (a *Aggregator) slot(symbol string, timeframe time.Duration) *slot {
	key := slotKey{symbol: symbol, timeframe: timeframe}
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[key]
	if !ok {
		s = &slot{open: make(map[time.Time]*market.Bar)}
		a.slots[key] = s
	}
	return s
}

func (s *slot) ingest(tick market.Tick, timeframe, grace time.Duration) ([]market.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := market.Bucket(tick.Ts, timeframe)
	if tick.Ts.After(s.watermark) {
		s.watermark = tick.Ts
	}

	if bar, ok := s.open[bucket]; ok {
		if tick.Price > bar.High {
			bar.High = tick.Price
		}
		if tick.Price < bar.Low {
			bar.Low = tick.Price
		}
		bar.Close = tick.Price
		bar.Volume += tick.Size
		bar.TickCount++
	} else {
		if closedAt(bucket, timeframe, grace, s.watermark) {
			return nil, &OutOfOrderError{
				Symbol:    tick.Symbol,
				Timeframe: timeframe,
				Bucket:    bucket,
				Watermark: s.watermark,
			}
		}
		s.open[bucket] = &market.Bar{
			Symbol:    tick.Symbol,
			Timeframe: timeframe,
			Start:     bucket,
			Open:      tick.Price,
			High:      tick.Price,
			Low:       tick.Price,
			Close:     tick.Price,
			Volume:    tick.Size,
			TickCount: 1,
		}
	}

	return s.emit(grace), nil
}

// emit closes and returns every live bar whose bucket has passed the
// watermark, oldest first. Caller holds s.mu.
func (s *slot) emit(grace time.Duration) []market.Bar {
	var out []market.Bar
	for bucket, bar := range s.open {
		if closedAt(bucket, bar.Timeframe, grace, s.watermark) {
			out = append(out, *bar)
			delete(s.open, bucket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *slot) flush() []market.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.Bar, 0, len(s.open))
	for bucket, bar := range s.open {
		out = append(out, *bar)
		delete(s.open, bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func closedAt(bucket time.Time, timeframe, grace time.Duration, watermark time.Time) bool {
	return !bucket.Add(timeframe + grace).After(watermark)
}
