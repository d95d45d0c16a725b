// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
)

// App captures process-wide runtime settings such as name, environment, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	APIAddr     string `yaml:"api_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"` // empty disables file output
}

// Exchange describes the tick feed: provider selection plus the tracked symbols.
type Exchange struct {
	Provider   string   `yaml:"provider"` // stub, binance, replay
	Symbols    []string `yaml:"symbols"`
	ReplayPath string   `yaml:"replay_path"`
}

// Bars configures the resampling layer.
type Bars struct {
	Timeframes []string `yaml:"timeframes"`
	GraceMs    int      `yaml:"grace_ms"` // bounded lateness window, 0 = close on boundary
}

// Store points the bar store at its SQLite file.
type Store struct {
	Path string `yaml:"path"`
}

// Analytics groups tunable knobs for the signal computation.
type Analytics struct {
	Window     int `yaml:"window"`      // rolling window in bars
	BetaWindow int `yaml:"beta_window"` // trailing bars for the hedge ratio, 0 = whole series
	ADFMaxLag  int `yaml:"adf_max_lag"` // 0 = Schwert rule
	MaxRows    int `yaml:"max_rows"`    // per-recompute row budget, 0 = unlimited
}

// Alert holds the z-score threshold and the audit log destination.
type Alert struct {
	Threshold float64 `yaml:"threshold"`
	LogPath   string  `yaml:"log_path"` // empty disables the JSONL recorder
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Exchange  Exchange  `yaml:"exchange"`
	Bars      Bars      `yaml:"bars"`
	Store     Store     `yaml:"store"`
	Analytics Analytics `yaml:"analytics"`
	Alert     Alert     `yaml:"alert"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ParsedTimeframes parses the configured timeframe tokens into durations.
func (b Bars) ParsedTimeframes() ([]time.Duration, error) {
	if len(b.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframes configured")
	}
	out := make([]time.Duration, 0, len(b.Timeframes))
	for _, token := range b.Timeframes {
		d, err := market.ParseTimeframe(token)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Grace converts the configured lateness window into a duration.
func (b Bars) Grace() time.Duration {
	if b.GraceMs <= 0 {
		return 0
	}
	return time.Duration(b.GraceMs) * time.Millisecond
}
