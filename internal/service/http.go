package service

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/alert"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/export"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
)

// Handler exposes the recompute/export API the dashboard calls:
//
//	GET /api/recompute             JSON snapshot + alert state
//	GET /api/export/analytics.csv  snapshot columns as CSV
//	GET /api/export/bars.csv       stored OHLCV as CSV
//
// Query params: primary, hedge, symbol, timeframe, window, beta_window,
// threshold; unset knobs fall back to the service defaults.
func Handler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/recompute", func(w http.ResponseWriter, r *http.Request) {
		snap, state, ok := runRecompute(svc, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(recomputeResponse{
			Snapshot: toSnapshotDTO(snap),
			Alert:    state,
		})
	})
	mux.HandleFunc("GET /api/export/analytics.csv", func(w http.ResponseWriter, r *http.Request) {
		snap, _, ok := runRecompute(svc, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_ = export.WriteSnapshot(w, snap)
	})
	mux.HandleFunc("GET /api/export/bars.csv", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			httpError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		timeframe, err := timeframeParam(r, svc.Defaults().Timeframe)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		series, err := svc.Bars(r.Context(), symbol, timeframe, time.Time{}, time.Time{})
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_ = export.WriteBars(w, series)
	})
	return mux
}

func runRecompute(svc *Service, w http.ResponseWriter, r *http.Request) (*analytics.Snapshot, alert.State, bool) {
	req, err := parseRequest(r, svc.Defaults())
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, alert.State{}, false
	}
	snap, state, err := svc.Recompute(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, analytics.ErrNoOverlap):
			status = http.StatusConflict
		case errors.Is(err, ErrRowBudget):
			status = http.StatusUnprocessableEntity
		}
		httpError(w, status, err.Error())
		return nil, alert.State{}, false
	}
	return snap, state, true
}

func parseRequest(r *http.Request, defaults Defaults) (Request, error) {
	q := r.URL.Query()
	req := Request{
		Primary: q.Get("primary"),
		Hedge:   q.Get("hedge"),
	}
	var err error
	if req.Timeframe, err = timeframeParam(r, defaults.Timeframe); err != nil {
		return req, err
	}
	if req.Window, err = intParam(q.Get("window"), defaults.Window); err != nil {
		return req, err
	}
	if req.BetaWindow, err = intParam(q.Get("beta_window"), defaults.BetaWindow); err != nil {
		return req, err
	}
	if raw := q.Get("threshold"); raw != "" {
		if req.Threshold, err = strconv.ParseFloat(raw, 64); err != nil {
			return req, err
		}
	} else {
		req.Threshold = defaults.Threshold
	}
	return req, nil
}

func timeframeParam(r *http.Request, fallback time.Duration) (time.Duration, error) {
	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		return fallback, nil
	}
	return market.ParseTimeframe(raw)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type recomputeResponse struct {
	Snapshot snapshotDTO `json:"snapshot"`
	Alert    alert.State `json:"alert"`
}

// snapshotDTO mirrors analytics.Snapshot with NaN mapped to null, since
// encoding/json refuses NaN.
type snapshotDTO struct {
	AsOf         time.Time  `json:"as_of"`
	Timeframe    string     `json:"timeframe"`
	Window       int        `json:"window"`
	Beta         *float64   `json:"beta"`
	Buckets      []int64    `json:"buckets_ms"`
	PrimaryClose []*float64 `json:"primary_close"`
	HedgeClose   []*float64 `json:"hedge_close"`
	Spread       []*float64 `json:"spread"`
	ZScore       []*float64 `json:"zscore"`
	Correlation  []*float64 `json:"correlation"`
	Volatility   []*float64 `json:"volatility"`
	ADF          adfDTO     `json:"adf"`
}

type adfDTO struct {
	Stat       *float64 `json:"stat"`
	Lag        int      `json:"lag"`
	NObs       int      `json:"n_obs"`
	Crit1      *float64 `json:"crit_1pct"`
	Crit5      *float64 `json:"crit_5pct"`
	Crit10     *float64 `json:"crit_10pct"`
	Stationary bool     `json:"is_stationary"`
	OK         bool     `json:"ok"`
}

func toSnapshotDTO(snap *analytics.Snapshot) snapshotDTO {
	buckets := make([]int64, len(snap.Buckets))
	for i, b := range snap.Buckets {
		buckets[i] = b.UnixMilli()
	}
	dto := snapshotDTO{
		AsOf:         snap.AsOf,
		Timeframe:    market.FormatTimeframe(snap.Timeframe),
		Window:       snap.Window,
		Buckets:      buckets,
		PrimaryClose: nullable(snap.PrimaryClose),
		HedgeClose:   nullable(snap.HedgeClose),
		Spread:       nullable(snap.Spread),
		ZScore:       nullable(snap.ZScore),
		Correlation:  nullable(snap.Correlation),
		Volatility:   nullable(snap.Volatility),
		ADF: adfDTO{
			Stat:       nullableScalar(snap.ADF.Stat, snap.ADF.OK),
			Lag:        snap.ADF.Lag,
			NObs:       snap.ADF.NObs,
			Crit1:      nullableScalar(snap.ADF.Crit1, snap.ADF.OK),
			Crit5:      nullableScalar(snap.ADF.Crit5, snap.ADF.OK),
			Crit10:     nullableScalar(snap.ADF.Crit10, snap.ADF.OK),
			Stationary: snap.ADF.Stationary,
			OK:         snap.ADF.OK,
		},
	}
	dto.Beta = nullableScalar(snap.Beta, snap.BetaOK)
	return dto
}

func nullable(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i := range xs {
		if !math.IsNaN(xs[i]) {
			v := xs[i]
			out[i] = &v
		}
	}
	return out
}

func nullableScalar(v float64, ok bool) *float64 {
	if !ok || math.IsNaN(v) {
		return nil
	}
	return &v
}
