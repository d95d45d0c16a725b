package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "quant-analytics-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.APIAddr != ":8089" {
		t.Fatalf("unexpected App.APIAddr: %s", cfg.App.APIAddr)
	}
	if cfg.Exchange.Provider != "stub" {
		t.Fatalf("unexpected provider: %s", cfg.Exchange.Provider)
	}
	if len(cfg.Exchange.Symbols) != 2 || cfg.Exchange.Symbols[0] != "BTCUSDT" || cfg.Exchange.Symbols[1] != "ETHUSDT" {
		t.Fatalf("unexpected symbols: %+v", cfg.Exchange.Symbols)
	}
	if len(cfg.Bars.Timeframes) != 3 {
		t.Fatalf("expected 3 timeframes, got %+v", cfg.Bars.Timeframes)
	}
	if cfg.Bars.GraceMs != 250 {
		t.Fatalf("unexpected grace: %d", cfg.Bars.GraceMs)
	}
	if cfg.Store.Path != "data/bars.db" {
		t.Fatalf("unexpected store path: %s", cfg.Store.Path)
	}
	if cfg.Analytics.Window != 50 {
		t.Fatalf("unexpected window: %d", cfg.Analytics.Window)
	}
	if cfg.Analytics.MaxRows != 100000 {
		t.Fatalf("unexpected row budget: %d", cfg.Analytics.MaxRows)
	}
	if cfg.Alert.Threshold != 2.0 {
		t.Fatalf("unexpected threshold: %.2f", cfg.Alert.Threshold)
	}
	if cfg.Alert.LogPath != "data/alerts.jsonl" {
		t.Fatalf("unexpected alert log path: %s", cfg.Alert.LogPath)
	}
}

func TestParsedTimeframes(t *testing.T) {
	bars := Bars{Timeframes: []string{"1s", "1m", "5m"}, GraceMs: 250}
	tfs, err := bars.ParsedTimeframes()
	if err != nil {
		t.Fatalf("ParsedTimeframes returned error: %v", err)
	}
	want := []time.Duration{time.Second, time.Minute, 5 * time.Minute}
	for i, tf := range tfs {
		if tf != want[i] {
			t.Fatalf("timeframe %d: expected %s got %s", i, want[i], tf)
		}
	}
	if bars.Grace() != 250*time.Millisecond {
		t.Fatalf("unexpected grace duration: %s", bars.Grace())
	}

	if _, err := (Bars{Timeframes: []string{"0s"}}).ParsedTimeframes(); err == nil {
		t.Fatalf("expected error for non-positive timeframe")
	}
	if _, err := (Bars{}).ParsedTimeframes(); err == nil {
		t.Fatalf("expected error for empty timeframes")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
