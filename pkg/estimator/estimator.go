package estimator

import (
	"context"
	"log/slog"
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/store"
)

type Config struct {
	PeakWindow        time.Duration
	Forecast          ForecastConfig
	HeatmapMinRecords int
}

type Estimator struct {
	cfg        Config
	forecaster Forecaster
}

func NewEstimator(cfg Config, forecaster Forecaster) *Estimator {
	return &Estimator{
		cfg:        cfg,
		forecaster: forecaster,
	}
}

// BuildReport derives every panel from obs. ok is false when there is no
// data at all, in which case nothing should be rendered beyond a notice.
func (e *Estimator) BuildReport(ctx context.Context, obs []store.Observation) (Report, bool) {
	summary, ok := e.Summary(obs)
	if !ok {
		return Report{}, false
	}

	forecast := e.Forecast(ctx, obs)
	heatmap, hasHeatmap := e.Heatmap(obs)

	slog.Debug("Report built",
		"observations", summary.Observations,
		"forecast", forecast.State,
		"heatmap", hasHeatmap,
	)

	return Report{
		Summary:    summary,
		Forecast:   forecast,
		Heatmap:    heatmap,
		HasHeatmap: hasHeatmap,
	}, true
}

func (e *Estimator) Summary(obs []store.Observation) (Summary, bool) {
	return Summarize(obs, e.cfg.PeakWindow)
}

func (e *Estimator) Forecast(ctx context.Context, obs []store.Observation) ForecastPanel {
	return BuildForecast(ctx, e.forecaster, obs, e.cfg.Forecast)
}

func (e *Estimator) Heatmap(obs []store.Observation) (Heatmap, bool) {
	return BuildHeatmap(obs, e.cfg.HeatmapMinRecords)
}

// Summarize computes the current-status figures from the tail of obs.
func Summarize(obs []store.Observation, peakWindow time.Duration) (Summary, bool) {
	if len(obs) == 0 {
		return Summary{}, false
	}

	last := obs[len(obs)-1]
	prev := last
	if len(obs) > 1 {
		prev = obs[len(obs)-2]
	}

	delta := last.Players - prev.Players
	var pct float64
	if prev.Players != 0 {
		pct = float64(delta) / float64(prev.Players) * 100
	}

	return Summary{
		Players:      last.Players,
		Servers:      last.Servers,
		PlayersDelta: delta,
		ServersDelta: last.Servers - prev.Servers,
		PlayersPct:   pct,
		PeakPlayers:  PeakPlayers(obs, peakWindow),
		PeakWindow:   peakWindow,
		LastUpdate:   last.Timestamp,
		Observations: len(obs),
	}, true
}

// PeakPlayers returns the maximum player count among records strictly newer
// than last.Timestamp-window. The most recent record is always included.
func PeakPlayers(obs []store.Observation, window time.Duration) int {
	if len(obs) == 0 {
		return 0
	}

	last := obs[len(obs)-1]
	cutoff := last.Timestamp.Add(-window)
	peak := last.Players
	for i := len(obs) - 2; i >= 0; i-- {
		o := obs[i]
		if !o.Timestamp.After(cutoff) {
			break
		}
		if o.Players > peak {
			peak = o.Players
		}
	}
	return peak
}
