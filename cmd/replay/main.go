// Command replay pushes a recorded tick CSV through the same
// aggregation pipeline quantd runs live, then performs a single
// recompute for the requested pair and writes the analytics snapshot
// as CSV. Handy for checking signal behavior on captured sessions
// without standing up the daemon.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/config"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/exchange"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/export"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/resample"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/service"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/store"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	ticksPath := flag.String("ticks", "", "tick CSV to replay (overrides config)")
	primary := flag.String("primary", "", "primary symbol for the recompute")
	hedge := flag.String("hedge", "", "hedge symbol for the recompute")
	timeframe := flag.String("timeframe", "", "bar timeframe, e.g. 1m (default: largest configured)")
	window := flag.Int("window", 0, "rolling window in bars (default from config)")
	threshold := flag.Float64("threshold", 0, "alert z-score threshold (default from config)")
	out := flag.String("out", "", "analytics CSV output path (default stdout)")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	replayPath := cfg.Exchange.ReplayPath
	if *ticksPath != "" {
		replayPath = *ticksPath
	}
	if replayPath == "" {
		log.Fatal().Msg("no tick file: set -ticks or exchange.replay_path")
	}
	if *primary == "" || *hedge == "" {
		log.Fatal().Msg("both -primary and -hedge are required")
	}

	timeframes, err := cfg.Bars.ParsedTimeframes()
	if err != nil {
		log.Fatal().Err(err).Msg("parse timeframes")
	}
	tf := timeframes[len(timeframes)-1]
	if *timeframe != "" {
		if tf, err = market.ParseTimeframe(*timeframe); err != nil {
			log.Fatal().Err(err).Msg("parse -timeframe")
		}
	}

	barStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open bar store")
	}
	defer barStore.Close()

	ctx := context.Background()
	agg := resample.New(timeframes, cfg.Bars.Grace(), log)
	feed := exchange.NewFeed(exchange.ProviderReplay, []string{*primary, *hedge}, log,
		exchange.WithReplayPath(replayPath))

	ticks := make(chan market.Tick, 1024)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- feed.Run(ctx, ticks)
		close(ticks)
	}()

	ingested := 0
	for tk := range ticks {
		// Ingest errors are advisory; closed bars from other slots still persist.
		closed, err := agg.Ingest(tk)
		if len(closed) > 0 {
			if err := barStore.AppendBatch(ctx, closed); err != nil {
				log.Fatal().Err(err).Msg("persist bars")
			}
		}
		if err == nil {
			ingested++
		}
	}
	if err := <-feedErr; err != nil {
		log.Fatal().Err(err).Msg("replay feed")
	}
	if remaining := agg.FlushAll(); len(remaining) > 0 {
		if err := barStore.AppendBatch(ctx, remaining); err != nil {
			log.Fatal().Err(err).Msg("flush bars")
		}
	}
	log.Info().Int("ticks", ingested).Str("path", replayPath).Msg("replay ingested")

	svc := service.New(
		barStore,
		service.Limits{MaxRows: cfg.Analytics.MaxRows},
		service.Defaults{
			Timeframe:  tf,
			Window:     cfg.Analytics.Window,
			BetaWindow: cfg.Analytics.BetaWindow,
			ADFMaxLag:  cfg.Analytics.ADFMaxLag,
			Threshold:  cfg.Alert.Threshold,
		},
		nil,
		log,
	)
	snap, state, err := svc.Recompute(ctx, service.Request{
		Primary:   *primary,
		Hedge:     *hedge,
		Timeframe: tf,
		Window:    *window,
		Threshold: *threshold,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("recompute")
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("create output file")
		}
		defer f.Close()
		dst = f
	}
	if err := export.WriteSnapshot(dst, snap); err != nil {
		log.Fatal().Err(err).Msg("write snapshot")
	}

	evt := log.Info().
		Str("primary", *primary).
		Str("hedge", *hedge).
		Float64("threshold", state.Threshold).
		Bool("triggered", state.Triggered)
	if state.HasData {
		evt = evt.Float64("zscore", state.LatestZ)
	}
	evt.Msg("alert state")
}
