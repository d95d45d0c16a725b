package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	TicksOutOfOrderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_out_of_order_total", Help: "Ticks rejected for already-closed buckets"},
		[]string{"symbol", "timeframe"},
	)
	BarsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_closed_total", Help: "Closed OHLC bars emitted by the aggregator"},
		[]string{"symbol", "timeframe"},
	)
	RecomputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "recompute_seconds", Help: "Wall time of analytics recomputation", Buckets: prometheus.DefBuckets},
	)
	RecomputeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "recompute_errors_total", Help: "Failed analytics recomputations"},
		[]string{"reason"},
	)
	AlertsTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_triggered_total", Help: "Z-score threshold alerts raised"},
		[]string{"primary", "hedge"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		TicksOutOfOrderTotal,
		BarsClosedTotal,
		RecomputeSeconds,
		RecomputeErrorsTotal,
		AlertsTriggeredTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
