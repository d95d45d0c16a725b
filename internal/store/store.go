// Package store persists closed bars in SQLite and serves range queries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/market"
)

// BarStore is an append-only archive of closed bars keyed by
// (symbol, timeframe, bucket). Appends upsert on conflict so replaying
// the same tick file cannot duplicate rows. Queries copy rows out of
// SQLite, which gives callers a stable snapshot: bars that close while
// an analytics pass is running are invisible to it.
type BarStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol       TEXT    NOT NULL,
	timeframe_ns INTEGER NOT NULL,
	bucket_ms    INTEGER NOT NULL,
	open         REAL    NOT NULL,
	high         REAL    NOT NULL,
	low          REAL    NOT NULL,
	close        REAL    NOT NULL,
	volume       REAL    NOT NULL,
	tick_count   INTEGER NOT NULL,
	PRIMARY KEY (symbol, timeframe_ns, bucket_ms)
);`

// Open creates (or reopens) the SQLite file at path and ensures the schema.
func Open(path string) (*BarStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &BarStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BarStore) Close() error { return s.db.Close() }

// Append persists one closed bar.
func (s *BarStore) Append(ctx context.Context, bar market.Bar) error {
	return s.AppendBatch(ctx, []market.Bar{bar})
}

// AppendBatch persists a batch of closed bars inside one transaction.
func (s *BarStore) AppendBatch(ctx context.Context, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, timeframe_ns, bucket_ms, open, high, low, close, volume, tick_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timeframe_ns, bucket_ms) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, tick_count = excluded.tick_count`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			bar.Symbol, int64(bar.Timeframe), bar.Start.UnixMilli(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.TickCount,
		); err != nil {
			return fmt.Errorf("append bar %s %s: %w", bar.Symbol, bar.Start, err)
		}
	}
	return tx.Commit()
}

// Query returns the bars for one (symbol, timeframe) whose bucket start
// lies in [start, end), ordered by bucket start. Zero start/end leave
// the respective side unbounded.
func (s *BarStore) Query(ctx context.Context, symbol string, timeframe time.Duration, start, end time.Time) (market.BarSeries, error) {
	q := `SELECT bucket_ms, open, high, low, close, volume, tick_count
		FROM bars WHERE symbol = ? AND timeframe_ns = ?`
	args := []any{symbol, int64(timeframe)}
	if !start.IsZero() {
		q += " AND bucket_ms >= ?"
		args = append(args, start.UnixMilli())
	}
	if !end.IsZero() {
		q += " AND bucket_ms < ?"
		args = append(args, end.UnixMilli())
	}
	q += " ORDER BY bucket_ms"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var series market.BarSeries
	for rows.Next() {
		bar := market.Bar{Symbol: symbol, Timeframe: timeframe}
		var bucketMs int64
		if err := rows.Scan(&bucketMs, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.TickCount); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bar.Start = time.UnixMilli(bucketMs).UTC()
		series = append(series, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return series, nil
}

// CountBars reports the number of stored bars for one (symbol, timeframe).
func (s *BarStore) CountBars(ctx context.Context, symbol string, timeframe time.Duration) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bars WHERE symbol = ? AND timeframe_ns = ?`,
		symbol, int64(timeframe),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}
