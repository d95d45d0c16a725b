// Package export serializes snapshots and bar series to flat delimited
// text, and parses the tick files the replay feed consumes.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
)

var snapshotHeader = []string{"ts", "close_primary", "close_hedge", "spread", "zscore", "corr"}

// WriteSnapshot streams the per-bucket analytics columns as CSV.
// NaN ("not yet available") renders as an empty field.
func WriteSnapshot(w io.Writer, snap *analytics.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, bucket := range snap.Buckets {
		row := []string{
			bucket.UTC().Format(time.RFC3339Nano),
			formatFloat(snap.PrimaryClose[i]),
			formatFloat(snap.HedgeClose[i]),
			formatFloat(snap.Spread[i]),
			formatFloat(snap.ZScore[i]),
			formatFloat(snap.Correlation[i]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var barsHeader = []string{"ts", "symbol", "timeframe", "open", "high", "low", "close", "volume", "tick_count"}

// WriteBars streams a bar series as CSV.
func WriteBars(w io.Writer, series market.BarSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(barsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, bar := range series {
		row := []string{
			bar.Start.UTC().Format(time.RFC3339Nano),
			bar.Symbol,
			market.FormatTimeframe(bar.Timeframe),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
			strconv.Itoa(bar.TickCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var ticksHeader = []string{"ts_ms", "symbol", "price", "size"}

// WriteTicks serializes ticks in the replay format: ts_ms,symbol,price,size.
func WriteTicks(w io.Writer, ticks []market.Tick) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ticksHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, tk := range ticks {
		row := []string{
			strconv.FormatInt(tk.Ts.UnixMilli(), 10),
			tk.Symbol,
			strconv.FormatFloat(tk.Price, 'f', -1, 64),
			strconv.FormatFloat(tk.Size, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TickReader streams ticks from the replay CSV format, skipping an
// optional header row.
type TickReader struct {
	cr    *csv.Reader
	first bool
}

// NewTickReader wraps r for streaming tick reads.
func NewTickReader(r io.Reader) *TickReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	return &TickReader{cr: cr, first: true}
}

// Read returns the next tick, or io.EOF at end of input.
func (t *TickReader) Read() (market.Tick, error) {
	for {
		record, err := t.cr.Read()
		if err != nil {
			return market.Tick{}, err
		}
		if t.first {
			t.first = false
			if record[0] == ticksHeader[0] {
				continue
			}
		}
		return parseTickRecord(record)
	}
}

// ReadTicks slurps an entire replay file.
func ReadTicks(r io.Reader) ([]market.Tick, error) {
	tr := NewTickReader(r)
	var out []market.Tick
	for {
		tk, err := tr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
}

func parseTickRecord(record []string) (market.Tick, error) {
	ms, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse ts_ms %q: %w", record[0], err)
	}
	price, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse price %q: %w", record[2], err)
	}
	size, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse size %q: %w", record[3], err)
	}
	return market.Tick{
		Symbol: record[1],
		Price:  price,
		Size:   size,
		Ts:     time.UnixMilli(ms).UTC(),
	}, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
