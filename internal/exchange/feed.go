// Package exchange hosts tick-source connectors for the resampling pipeline.
package exchange

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/export"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/metrics"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
	// ProviderReplay re-plays a recorded tick CSV file.
	ProviderReplay = "replay"
)

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider   string
	symbols    []string
	log        zerolog.Logger
	replayPath string
	mu         sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithReplayPath points the replay provider at its tick file.
func WithReplayPath(path string) Option {
	return func(f *Feed) { f.replayPath = path }
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		log:      log,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.setSymbols(symbols)
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[strings.ToUpper(sym)] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes ticks onto the provided channel until the context is
// canceled or, for the replay provider, the file is exhausted.
func (f *Feed) Run(ctx context.Context, out chan<- market.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderReplay:
		return f.runReplay(ctx, out)
	case ProviderStub:
		return f.runStub(ctx, out)
	default:
		return fmt.Errorf("unknown feed provider %q", f.provider)
	}
}

// runStub emits a deterministic slow drift per symbol, scaled so the
// tracked instruments stay correlated the way a stat-arb pair would.
func (f *Feed) runStub(ctx context.Context, out chan<- market.Tick) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			drift := 0.1 * float64(step)
			for i, sym := range f.snapshotSymbols() {
				scale := float64(i + 1)
				tick := market.Tick{Symbol: sym, Price: (100 + drift) * scale, Size: 1, Ts: ts}
				select {
				case out <- tick:
					metrics.TicksTotal.WithLabelValues(sym).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// runReplay streams a recorded tick CSV through the pipeline as fast as
// the consumer accepts it, returning nil at end of file.
func (f *Feed) runReplay(ctx context.Context, out chan<- market.Tick) error {
	if f.replayPath == "" {
		return fmt.Errorf("replay feed requires a tick file path")
	}
	file, err := os.Open(f.replayPath)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	f.log.Info().Str("provider", ProviderReplay).Str("path", f.replayPath).Msg("replaying tick file")

	reader := export.NewTickReader(file)
	for {
		tick, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read replay tick: %w", err)
		}
		select {
		case out <- tick:
			metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
