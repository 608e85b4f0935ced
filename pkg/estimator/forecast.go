package estimator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/store"
)

// Forecaster predicts future player counts. The result holds one point per
// history timestamp followed by periods points spaced step apart.
type Forecaster interface {
	Forecast(ctx context.Context, history []store.Observation, periods int, step time.Duration) ([]ForecastPoint, error)
}

type ForecastConfig struct {
	MinPoints int
	Periods   int
	Step      time.Duration
}

// BuildForecast runs f over obs when there is enough history. A forecaster
// error marks the panel unavailable instead of failing the caller.
func BuildForecast(ctx context.Context, f Forecaster, obs []store.Observation, cfg ForecastConfig) ForecastPanel {
	panel := ForecastPanel{
		Have:     len(obs),
		Required: cfg.MinPoints,
	}
	if len(obs) == 0 || len(obs) < cfg.MinPoints {
		panel.State = PanelInsufficient
		return panel
	}

	points, err := f.Forecast(ctx, obs, cfg.Periods, cfg.Step)
	if err == nil && len(points) == 0 {
		err = ErrEmptyForecast
	}
	if err != nil {
		slog.Warn("Forecast unavailable", "observations", len(obs), "error", err)
		panel.State = PanelUnavailable
		panel.Err = err.Error()
		return panel
	}

	panel.State = PanelReady
	panel.Points = points
	panel.Trend = trendOf(obs[len(obs)-1].Players, points[len(points)-1].Yhat, time.Duration(cfg.Periods)*cfg.Step)
	return panel
}

func trendOf(lastActual int, finalYhat float64, horizon time.Duration) Trend {
	diff := finalYhat - float64(lastActual)
	direction := "decrease"
	if diff > 0 {
		direction = "increase"
	}
	return Trend{
		Direction: direction,
		Magnitude: int(math.Abs(math.Trunc(diff))),
		Horizon:   horizon,
	}
}
