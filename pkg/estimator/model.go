package estimator

import (
	"context"
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rxtx-hosting/mtastats/pkg/store"
)

var (
	ErrDegenerateSeries = errors.New("series has no variation in time")
	ErrEmptyForecast    = errors.New("forecaster returned no points")
)

// TrendSeasonalModel fits a linear trend over elapsed hours plus a mean
// hour-of-day residual, with a symmetric band from the fitted residual spread.
type TrendSeasonalModel struct {
	// IntervalWidth is the coverage of the band, in (0,1).
	IntervalWidth float64
}

func NewTrendSeasonalModel(intervalWidth float64) *TrendSeasonalModel {
	return &TrendSeasonalModel{IntervalWidth: intervalWidth}
}

func (m *TrendSeasonalModel) Forecast(ctx context.Context, history []store.Observation, periods int, step time.Duration) ([]ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(history) < 2 {
		return nil, ErrDegenerateSeries
	}

	origin := history[0].Timestamp
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, o := range history {
		xs[i] = o.Timestamp.Sub(origin).Hours()
		ys[i] = float64(o.Players)
	}
	if stat.Variance(xs, nil) == 0 {
		return nil, ErrDegenerateSeries
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return nil, ErrDegenerateSeries
	}

	var sums, counts [24]float64
	for i, o := range history {
		h := o.Timestamp.Hour()
		sums[h] += ys[i] - (alpha + beta*xs[i])
		counts[h]++
	}
	var seasonal [24]float64
	for h := range seasonal {
		if counts[h] > 0 {
			seasonal[h] = sums[h] / counts[h]
		}
	}

	predict := func(ts time.Time) float64 {
		return alpha + beta*ts.Sub(origin).Hours() + seasonal[ts.Hour()]
	}

	residuals := make([]float64, len(history))
	for i, o := range history {
		residuals[i] = ys[i] - predict(o.Timestamp)
	}
	sigma := stat.StdDev(residuals, nil)
	if math.IsNaN(sigma) {
		sigma = 0
	}
	spread := distuv.UnitNormal.Quantile(0.5+m.IntervalWidth/2) * sigma

	points := make([]ForecastPoint, 0, len(history)+periods)
	add := func(ts time.Time) {
		yhat := predict(ts)
		points = append(points, ForecastPoint{
			Timestamp: ts,
			Yhat:      yhat,
			Lower:     yhat - spread,
			Upper:     yhat + spread,
		})
	}
	for _, o := range history {
		add(o.Timestamp)
	}
	last := history[len(history)-1].Timestamp
	for k := 1; k <= periods; k++ {
		add(last.Add(time.Duration(k) * step))
	}

	return points, nil
}
