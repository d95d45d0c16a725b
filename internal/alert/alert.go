// Package alert turns the latest rolling z-score into a threshold signal.
package alert

import (
	"encoding/json"
	"math"
	"time"

	"github.com/SamarthArole/quant-analytics-dashboard/internal/analytics"
)

// State is the outcome of one evaluation. HasData=false means no
// z-score was available at all, which is deliberately distinct from
// "had data but below threshold".
type State struct {
	Threshold float64
	LatestZ   float64 // NaN when HasData is false
	HasData   bool
	Triggered bool
	AsOf      time.Time
}

// Evaluate compares the snapshot's latest available z-score against the
// threshold. Deterministic: same snapshot and threshold, same state.
func Evaluate(snap *analytics.Snapshot, threshold float64) State {
	st := State{Threshold: threshold, LatestZ: math.NaN(), AsOf: snap.AsOf}
	z, ok := snap.LatestZScore()
	if !ok {
		return st
	}
	st.LatestZ = z
	st.HasData = true
	st.Triggered = math.Abs(z) >= threshold
	return st
}

// MarshalJSON renders LatestZ as null when absent so the audit log
// stays valid JSON (encoding/json rejects NaN).
func (s State) MarshalJSON() ([]byte, error) {
	var z *float64
	if s.HasData && !math.IsNaN(s.LatestZ) {
		z = &s.LatestZ
	}
	return json.Marshal(struct {
		Threshold float64   `json:"threshold"`
		LatestZ   *float64  `json:"latest_zscore"`
		HasData   bool      `json:"has_data"`
		Triggered bool      `json:"triggered"`
		AsOf      time.Time `json:"as_of"`
	}{s.Threshold, z, s.HasData, s.Triggered, s.AsOf})
}
