package exporter

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
)

type PrometheusExporter struct {
	registry         *prometheus.Registry
	players          prometheus.Gauge
	servers          prometheus.Gauge
	peakPlayers      prometheus.Gauge
	observations     prometheus.Gauge
	lastUpdate       prometheus.Gauge
	forecastPlayers  *prometheus.GaugeVec
	forecastHorizons map[string]struct{}
	mu               sync.Mutex
}

func NewPrometheusExporter() *PrometheusExporter {
	p := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtastats_players",
			Help: "Players online at the most recent observation",
		}),
		servers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtastats_servers",
			Help: "Active servers at the most recent observation",
		}),
		peakPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtastats_peak_players_24h",
			Help: "Highest player count within the peak window",
		}),
		observations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtastats_observations",
			Help: "Number of observations in the store",
		}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtastats_last_observation_timestamp_seconds",
			Help: "Unix time of the most recent observation",
		}),
		forecastPlayers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mtastats_forecast_players",
				Help: "Predicted player count at the end of the forecast horizon",
			},
			[]string{"horizon"},
		),
		forecastHorizons: make(map[string]struct{}),
	}

	p.registry.MustRegister(
		p.players,
		p.servers,
		p.peakPlayers,
		p.observations,
		p.lastUpdate,
		p.forecastPlayers,
	)
	return p
}

func (p *PrometheusExporter) UpdateStats(r estimator.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := r.Summary
	p.players.Set(float64(s.Players))
	p.servers.Set(float64(s.Servers))
	p.peakPlayers.Set(float64(s.PeakPlayers))
	p.observations.Set(float64(s.Observations))
	p.lastUpdate.Set(float64(s.LastUpdate.Unix()))

	current := make(map[string]struct{})
	if r.Forecast.State == estimator.PanelReady && len(r.Forecast.Points) > 0 {
		horizon := r.Forecast.Trend.Horizon.String()
		current[horizon] = struct{}{}
		p.forecastPlayers.WithLabelValues(horizon).Set(r.Forecast.Points[len(r.Forecast.Points)-1].Yhat)
	}

	for horizon := range p.forecastHorizons {
		if _, exists := current[horizon]; !exists {
			p.forecastPlayers.DeleteLabelValues(horizon)
		}
	}
	p.forecastHorizons = current
}

func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusExporter) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	return serve(ctx, addr, mux)
}
