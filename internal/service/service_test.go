package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/alert"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/store"
)

var svcEpoch = time.Unix(1_699_999_800, 0).UTC() // minute-aligned

// lcg yields deterministic pseudo-noise in [-0.5, 0.5).
func lcg(seed *uint64) float64 {
	*seed = *seed*6364136223846793005 + 1442695040888963407
	return float64(*seed>>11)/float64(1<<53) - 0.5
}

func seededService(t *testing.T, bars int, rec Recorder) *Service {
	t.Helper()
	barStore, err := store.Open(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { barStore.Close() })

	seed := uint64(17)
	var batch []market.Bar
	for i := 0; i < bars; i++ {
		hedge := 2000 + 10*lcg(&seed)
		primary := 2*hedge + lcg(&seed)
		start := svcEpoch.Add(time.Duration(i) * time.Minute)
		batch = append(batch,
			market.Bar{Symbol: "BTCUSDT", Timeframe: time.Minute, Start: start, Open: primary, High: primary + 1, Low: primary - 1, Close: primary, Volume: 1, TickCount: 1},
			market.Bar{Symbol: "ETHUSDT", Timeframe: time.Minute, Start: start, Open: hedge, High: hedge + 1, Low: hedge - 1, Close: hedge, Volume: 1, TickCount: 1},
		)
	}
	if err := barStore.AppendBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	defaults := Defaults{Timeframe: time.Minute, Window: 20, Threshold: 2.0}
	return New(barStore, Limits{MaxRows: 10000}, defaults, rec, zerolog.Nop())
}

func TestRecomputeEndToEnd(t *testing.T) {
	svc := seededService(t, 120, nil)

	snap, state, err := svc.Recompute(context.Background(), Request{Primary: "BTCUSDT", Hedge: "ETHUSDT"})
	if err != nil {
		t.Fatalf("Recompute returned error: %v", err)
	}
	if !snap.BetaOK {
		t.Fatalf("expected beta, got %+v", snap)
	}
	if snap.Beta < 1.9 || snap.Beta > 2.1 {
		t.Fatalf("expected beta ~2, got %v", snap.Beta)
	}
	if !snap.ADF.OK {
		t.Fatalf("expected ADF result on 120 aligned bars")
	}
	if !state.HasData {
		t.Fatalf("expected evaluated alert state, got %+v", state)
	}
	if state.Threshold != 2.0 {
		t.Fatalf("default threshold not applied: %+v", state)
	}
}

func TestRecomputeRowBudget(t *testing.T) {
	svc := seededService(t, 50, nil)
	svc.limits = Limits{MaxRows: 10}

	_, _, err := svc.Recompute(context.Background(), Request{Primary: "BTCUSDT", Hedge: "ETHUSDT"})
	if !errors.Is(err, ErrRowBudget) {
		t.Fatalf("expected ErrRowBudget, got %v", err)
	}
}

func TestRecomputeNoOverlap(t *testing.T) {
	svc := seededService(t, 10, nil)

	_, _, err := svc.Recompute(context.Background(), Request{Primary: "BTCUSDT", Hedge: "MISSING"})
	if !errors.Is(err, analytics.ErrNoOverlap) {
		t.Fatalf("expected ErrNoOverlap, got %v", err)
	}
}

func TestRecomputeValidatesRequest(t *testing.T) {
	svc := seededService(t, 10, nil)
	if _, _, err := svc.Recompute(context.Background(), Request{Primary: "BTCUSDT"}); err == nil {
		t.Fatalf("expected error for missing hedge symbol")
	}
}

type captureRecorder struct{ states []alert.State }

func (c *captureRecorder) Record(st alert.State) { c.states = append(c.states, st) }

func TestRecomputeRecordsAlertState(t *testing.T) {
	rec := &captureRecorder{}
	svc := seededService(t, 60, rec)

	if _, _, err := svc.Recompute(context.Background(), Request{Primary: "BTCUSDT", Hedge: "ETHUSDT"}); err != nil {
		t.Fatalf("Recompute returned error: %v", err)
	}
	if len(rec.states) != 1 {
		t.Fatalf("expected one recorded state, got %d", len(rec.states))
	}
}

func TestLimitsAllow(t *testing.T) {
	if !(Limits{}).Allow(1_000_000) {
		t.Fatalf("zero budget must mean unlimited")
	}
	if (Limits{MaxRows: 10}).Allow(11) {
		t.Fatalf("expected 11 > 10 to be rejected")
	}
	if !(Limits{MaxRows: 10}).Allow(10) {
		t.Fatalf("expected boundary row count to pass")
	}
}
