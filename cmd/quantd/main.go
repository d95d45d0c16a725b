// Command quantd runs the live pipeline: tick feed → bar aggregator →
// bar store, with the recompute/export API and Prometheus metrics on
// the side. Analytics only runs when a client calls the API; ingestion
// keeps streaming regardless.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/alert"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/config"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/exchange"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/metrics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/resample"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/service"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/store"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	boot := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	var log zerolog.Logger
	if cfg.App.LogFile != "" {
		log = util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)
	} else {
		log = util.NewLogger(cfg.App.LogLevel)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	timeframes, err := cfg.Bars.ParsedTimeframes()
	if err != nil {
		log.Fatal().Err(err).Msg("parse timeframes")
	}

	barStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open bar store")
	}
	defer barStore.Close()

	var recorder service.Recorder
	if cfg.Alert.LogPath != "" {
		jsonl, err := alert.NewJSONLRecorder(cfg.Alert.LogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open alert log")
		}
		defer jsonl.Close()
		recorder = jsonl
	}

	svc := service.New(
		barStore,
		service.Limits{MaxRows: cfg.Analytics.MaxRows},
		service.Defaults{
			Timeframe:  timeframes[len(timeframes)-1],
			Window:     cfg.Analytics.Window,
			BetaWindow: cfg.Analytics.BetaWindow,
			ADFMaxLag:  cfg.Analytics.ADFMaxLag,
			Threshold:  cfg.Alert.Threshold,
		},
		recorder,
		log,
	)
	apiSrv := &http.Server{Addr: cfg.App.APIAddr, Handler: service.Handler(svc)}
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()
	log.Info().Str("addr", cfg.App.APIAddr).Msg("api up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agg := resample.New(timeframes, cfg.Bars.Grace(), log)
	feed := exchange.NewFeed(
		cfg.Exchange.Provider,
		cfg.Exchange.Symbols,
		log,
		exchange.WithReplayPath(cfg.Exchange.ReplayPath),
	)
	ticks := make(chan market.Tick, 1024)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
		}
		cancel()
	}()

	log.Info().
		Str("provider", cfg.Exchange.Provider).
		Strs("symbols", cfg.Exchange.Symbols).
		Strs("timeframes", cfg.Bars.Timeframes).
		Msg("ingestion started")

	for {
		select {
		case <-ctx.Done():
			shutdown(agg, barStore, apiSrv, log)
			return
		case tk := <-ticks:
			// Ingest errors are advisory (the aggregator counts and logs
			// rejected ticks); other slots may still have closed bars.
			closed, _ := agg.Ingest(tk)
			if len(closed) == 0 {
				continue
			}
			if err := barStore.AppendBatch(context.Background(), closed); err != nil {
				log.Error().Err(err).Msg("persist bars")
			}
		}
	}
}

// shutdown flushes open bars into the store before the process exits.
func shutdown(agg *resample.Aggregator, barStore *store.BarStore, apiSrv *http.Server, log zerolog.Logger) {
	log.Info().Msg("shutting down")
	remaining := agg.FlushAll()
	if len(remaining) > 0 {
		if err := barStore.AppendBatch(context.Background(), remaining); err != nil {
			log.Error().Err(err).Int("bars", len(remaining)).Msg("flush bars")
		} else {
			log.Info().Int("bars", len(remaining)).Msg("flushed open bars")
		}
	}
	_ = apiSrv.Close()
}
