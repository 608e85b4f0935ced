package exporter

import (
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

type summaryResponse struct {
	Players           int     `json:"players"`
	Servers           int     `json:"servers"`
	PlayersDelta      int     `json:"players_delta"`
	PlayersPct        float64 `json:"players_delta_pct"`
	ServersDelta      int     `json:"servers_delta"`
	PeakPlayers       int     `json:"peak_players"`
	PeakWindowSeconds int     `json:"peak_window_seconds"`
	LastUpdate        string  `json:"last_update"`
	Observations      int     `json:"observations"`
}

type forecastPointResponse struct {
	Timestamp string  `json:"timestamp"`
	Yhat      float64 `json:"yhat"`
	Lower     float64 `json:"yhat_lower"`
	Upper     float64 `json:"yhat_upper"`
}

type forecastResponse struct {
	State    string                  `json:"state"`
	Have     int                     `json:"have"`
	Required int                     `json:"required"`
	Summary  string                  `json:"summary,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Points   []forecastPointResponse `json:"points,omitempty"`
}

type heatmapResponse struct {
	Days   []string     `json:"days"`
	Hours  []int        `json:"hours"`
	Values [][]*float64 `json:"values"`
}

type observationResponse struct {
	Timestamp string `json:"timestamp"`
	Players   int    `json:"players"`
	Servers   int    `json:"servers"`
}

func summaryToResponse(s estimator.Summary) summaryResponse {
	return summaryResponse{
		Players:           s.Players,
		Servers:           s.Servers,
		PlayersDelta:      s.PlayersDelta,
		PlayersPct:        s.PlayersPct,
		ServersDelta:      s.ServersDelta,
		PeakPlayers:       s.PeakPlayers,
		PeakWindowSeconds: int(s.PeakWindow.Seconds()),
		LastUpdate:        s.LastUpdate.Format(time.RFC3339),
		Observations:      s.Observations,
	}
}

func forecastToResponse(p estimator.ForecastPanel) forecastResponse {
	resp := forecastResponse{
		State:    string(p.State),
		Have:     p.Have,
		Required: p.Required,
		Error:    p.Err,
	}
	if p.State != estimator.PanelReady {
		return resp
	}

	resp.Summary = p.Trend.String()
	resp.Points = make([]forecastPointResponse, 0, len(p.Points))
	for _, pt := range p.Points {
		resp.Points = append(resp.Points, forecastPointResponse{
			Timestamp: pt.Timestamp.Format(time.RFC3339),
			Yhat:      pt.Yhat,
			Lower:     pt.Lower,
			Upper:     pt.Upper,
		})
	}
	return resp
}

func heatmapToResponse(h estimator.Heatmap) heatmapResponse {
	return heatmapResponse{
		Days:   h.Days,
		Hours:  h.Hours,
		Values: h.Values,
	}
}

func observationToResponse(o store.Observation) observationResponse {
	return observationResponse{
		Timestamp: o.Timestamp.Format(time.RFC3339),
		Players:   o.Players,
		Servers:   o.Servers,
	}
}
