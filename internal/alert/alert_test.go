package alert

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
)

func snapWithZ(zs []float64) *analytics.Snapshot {
	return &analytics.Snapshot{AsOf: time.Unix(1_700_000_000, 0).UTC(), ZScore: zs}
}

func TestEvaluateTriggered(t *testing.T) {
	st := Evaluate(snapWithZ([]float64{0.5, 1.0, 2.5}), 2.0)
	if !st.HasData || !st.Triggered {
		t.Fatalf("expected triggered alert, got %+v", st)
	}
	if st.LatestZ != 2.5 {
		t.Fatalf("unexpected latest z: %v", st.LatestZ)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	st := Evaluate(snapWithZ([]float64{0.5, -1.2}), 2.0)
	if !st.HasData {
		t.Fatalf("expected HasData, got %+v", st)
	}
	if st.Triggered {
		t.Fatalf("expected no trigger below threshold, got %+v", st)
	}
}

func TestEvaluateNegativeZTriggers(t *testing.T) {
	st := Evaluate(snapWithZ([]float64{-3.1}), 2.0)
	if !st.Triggered {
		t.Fatalf("expected |z| trigger for negative z, got %+v", st)
	}
}

func TestEvaluateSkipsTrailingNaN(t *testing.T) {
	st := Evaluate(snapWithZ([]float64{2.5, math.NaN()}), 2.0)
	if !st.HasData || !st.Triggered || st.LatestZ != 2.5 {
		t.Fatalf("expected latest non-NaN z to drive evaluation, got %+v", st)
	}
}

func TestEvaluateNoData(t *testing.T) {
	st := Evaluate(snapWithZ([]float64{math.NaN(), math.NaN()}), 2.0)
	if st.HasData {
		t.Fatalf("expected HasData=false, got %+v", st)
	}
	if st.Triggered {
		t.Fatalf("no-data state must not trigger, got %+v", st)
	}
	if !math.IsNaN(st.LatestZ) {
		t.Fatalf("expected NaN latest z, got %v", st.LatestZ)
	}
}

func TestRecorderWritesValidJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	rec, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder returned error: %v", err)
	}

	rec.Record(Evaluate(snapWithZ([]float64{2.5}), 2.0))
	rec.Record(Evaluate(snapWithZ([]float64{math.NaN()}), 2.0))
	if err := rec.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines++
		if lines == 2 && decoded["latest_zscore"] != nil {
			t.Fatalf("expected null z-score for no-data state, got %v", decoded["latest_zscore"])
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", lines)
	}
}
