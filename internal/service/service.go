// Package service wires the bar store, analytics engine, and alert
// evaluator behind the single synchronous recompute call the
// presentation layer invokes on refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/alert"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/metrics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/store"
)

// ErrRowBudget marks a recompute that would exceed the configured row
// budget; it fails fast instead of running unbounded.
var ErrRowBudget = errors.New("recompute exceeds row budget")

// Limits encodes guard-rails on how much data one recompute may touch.
type Limits struct {
	MaxRows int // combined rows across both series, 0 = unlimited
}

// Allow reports whether a recompute over the given row count fits the budget.
func (l Limits) Allow(rows int) bool {
	return l.MaxRows <= 0 || rows <= l.MaxRows
}

// Defaults fill unset request fields; they come from configuration.
type Defaults struct {
	Timeframe  time.Duration
	Window     int
	BetaWindow int
	ADFMaxLag  int
	Threshold  float64
}

// Request names one recompute: the pair, the timeframe, and the knobs.
type Request struct {
	Primary    string
	Hedge      string
	Timeframe  time.Duration
	Window     int
	BetaWindow int
	Threshold  float64
	Start, End time.Time // optional bucket range, zero = unbounded
}

// Recorder receives every evaluated alert state. Satisfied by
// *alert.JSONLRecorder; nil disables recording.
type Recorder interface {
	Record(alert.State)
}

// Service owns the read path: store → analytics → alert.
type Service struct {
	store    *store.BarStore
	limits   Limits
	defaults Defaults
	recorder Recorder
	log      zerolog.Logger
}

// New assembles a Service. recorder may be nil.
func New(barStore *store.BarStore, limits Limits, defaults Defaults, recorder Recorder, log zerolog.Logger) *Service {
	return &Service{store: barStore, limits: limits, defaults: defaults, recorder: recorder, log: log}
}

// Defaults exposes the configured fallback knobs (used by the HTTP layer).
func (s *Service) Defaults() Defaults { return s.defaults }

// Bars exposes a stored series for export endpoints.
func (s *Service) Bars(ctx context.Context, symbol string, timeframe time.Duration, start, end time.Time) (market.BarSeries, error) {
	return s.store.Query(ctx, symbol, timeframe, start, end)
}

// Recompute regenerates the full signal set for one pair. It is
// read-only over a point-in-time query of the store, so bars closing
// mid-computation are invisible. All analytics degradation travels
// inside the snapshot; the returned error covers only hard failures
// (store, alignment mismatch, budget).
func (s *Service) Recompute(ctx context.Context, req Request) (*analytics.Snapshot, alert.State, error) {
	req = s.applyDefaults(req)
	started := time.Now()

	fail := func(reason string, err error) (*analytics.Snapshot, alert.State, error) {
		metrics.RecomputeErrorsTotal.WithLabelValues(reason).Inc()
		return nil, alert.State{}, err
	}

	if req.Primary == "" || req.Hedge == "" {
		return fail("request", fmt.Errorf("recompute needs primary and hedge symbols"))
	}
	if req.Timeframe <= 0 {
		return fail("request", fmt.Errorf("recompute needs a positive timeframe"))
	}

	primary, err := s.store.Query(ctx, req.Primary, req.Timeframe, req.Start, req.End)
	if err != nil {
		return fail("query", fmt.Errorf("query primary: %w", err))
	}
	hedge, err := s.store.Query(ctx, req.Hedge, req.Timeframe, req.Start, req.End)
	if err != nil {
		return fail("query", fmt.Errorf("query hedge: %w", err))
	}

	if rows := len(primary) + len(hedge); !s.limits.Allow(rows) {
		return fail("row_budget", fmt.Errorf("%w: %d rows > %d", ErrRowBudget, rows, s.limits.MaxRows))
	}

	snap, err := analytics.Compute(primary, hedge, analytics.Options{
		Window:     req.Window,
		BetaWindow: req.BetaWindow,
		ADFMaxLag:  s.defaults.ADFMaxLag,
	})
	if err != nil {
		reason := "compute"
		if errors.Is(err, analytics.ErrNoOverlap) {
			reason = "no_overlap"
		}
		return fail(reason, err)
	}

	state := alert.Evaluate(snap, req.Threshold)
	if state.Triggered {
		metrics.AlertsTriggeredTotal.WithLabelValues(req.Primary, req.Hedge).Inc()
	}
	if s.recorder != nil {
		s.recorder.Record(state)
	}

	metrics.RecomputeSeconds.Observe(time.Since(started).Seconds())
	s.log.Debug().
		Str("primary", req.Primary).
		Str("hedge", req.Hedge).
		Str("timeframe", market.FormatTimeframe(req.Timeframe)).
		Int("aligned", len(snap.Buckets)).
		Bool("triggered", state.Triggered).
		Dur("took", time.Since(started)).
		Msg("recompute done")
	return snap, state, nil
}

func (s *Service) applyDefaults(req Request) Request {
	if req.Timeframe <= 0 {
		req.Timeframe = s.defaults.Timeframe
	}
	if req.Window <= 0 {
		req.Window = s.defaults.Window
	}
	if req.BetaWindow <= 0 {
		req.BetaWindow = s.defaults.BetaWindow
	}
	if req.Threshold <= 0 {
		req.Threshold = s.defaults.Threshold
	}
	return req
}
