package estimator

import (
	"fmt"
	"time"
)

type Summary struct {
	Players      int
	Servers      int
	PlayersDelta int
	ServersDelta int
	PlayersPct   float64
	PeakPlayers  int
	PeakWindow   time.Duration
	LastUpdate   time.Time
	Observations int
}

type ForecastPoint struct {
	Timestamp time.Time
	Yhat      float64
	Lower     float64
	Upper     float64
}

type PanelState string

const (
	PanelReady        PanelState = "ready"
	PanelInsufficient PanelState = "insufficient"
	PanelUnavailable  PanelState = "unavailable"
)

// Trend compares the last observed value with the final forecast point.
type Trend struct {
	Direction string
	Magnitude int
	Horizon   time.Duration
}

func (t Trend) String() string {
	return fmt.Sprintf("The model expects a net %s of approximately %d players over the next %s.",
		t.Direction, t.Magnitude, horizonText(t.Horizon))
}

type ForecastPanel struct {
	State    PanelState
	Have     int
	Required int
	Points   []ForecastPoint
	Trend    Trend
	Err      string
}

// Heatmap holds mean player counts indexed [day][hour], days Monday first.
// Cells without data are nil.
type Heatmap struct {
	Days   []string
	Hours  []int
	Values [][]*float64
}

// Report bundles everything a dashboard view renders.
type Report struct {
	Summary    Summary
	Forecast   ForecastPanel
	Heatmap    Heatmap
	HasHeatmap bool
}

func horizonText(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
