package exporter

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"signed": signed,
	"comma":  comma,
	"pct":    pct,
}).ParseFS(templateFS, "templates/*.html"))

// chartSeries is handed to Plotly as-is; dates use the store layout because
// Plotly does not understand zone offsets.
type chartSeries struct {
	X []string  `json:"x"`
	Y []float64 `json:"y"`
}

type forecastChart struct {
	Actual chartSeries `json:"actual"`
	Yhat   chartSeries `json:"yhat"`
	Band   chartSeries `json:"band"`
}

type dashboardView struct {
	Empty      bool
	Error      string
	Summary    estimator.Summary
	LastUpdate string
	Forecast   estimator.ForecastPanel
	Series     chartSeries
	Chart      forecastChart
	HasHeatmap bool
	Heatmap    heatmapResponse
}

func (a *APIServer) handleDashboard(c *gin.Context) {
	obs, err := a.source.Load()
	if err != nil {
		slog.Error("Failed to load observations", "error", err)
		c.HTML(http.StatusInternalServerError, "dashboard.html", dashboardView{Error: "Failed to load observations."})
		return
	}

	report, ok := a.estimator.BuildReport(c.Request.Context(), obs)
	if !ok {
		c.HTML(http.StatusOK, "dashboard.html", dashboardView{Empty: true})
		return
	}

	view := dashboardView{
		Summary:    report.Summary,
		LastUpdate: report.Summary.LastUpdate.Format("15:04"),
		Forecast:   report.Forecast,
		Series:     observationSeries(obs),
		HasHeatmap: report.HasHeatmap,
		Heatmap:    heatmapToResponse(report.Heatmap),
	}
	if report.Forecast.State == estimator.PanelReady {
		view.Chart = forecastChartOf(view.Series, report.Forecast.Points)
	}

	c.HTML(http.StatusOK, "dashboard.html", view)
}

func observationSeries(obs []store.Observation) chartSeries {
	s := chartSeries{
		X: make([]string, len(obs)),
		Y: make([]float64, len(obs)),
	}
	for i, o := range obs {
		s.X[i] = o.Timestamp.Format(store.TimeLayout)
		s.Y[i] = float64(o.Players)
	}
	return s
}

// forecastChartOf builds the band as a closed polygon: upper bounds forward,
// then lower bounds backward.
func forecastChartOf(actual chartSeries, points []estimator.ForecastPoint) forecastChart {
	n := len(points)
	chart := forecastChart{
		Actual: actual,
		Yhat: chartSeries{
			X: make([]string, n),
			Y: make([]float64, n),
		},
		Band: chartSeries{
			X: make([]string, 2*n),
			Y: make([]float64, 2*n),
		},
	}
	for i, p := range points {
		ts := p.Timestamp.Format(store.TimeLayout)
		chart.Yhat.X[i] = ts
		chart.Yhat.Y[i] = p.Yhat
		chart.Band.X[i] = ts
		chart.Band.Y[i] = p.Upper
		chart.Band.X[2*n-1-i] = ts
		chart.Band.Y[2*n-1-i] = p.Lower
	}
	return chart
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

func pct(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}
