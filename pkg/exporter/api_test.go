package exporter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

type fakeSource struct {
	obs []store.Observation
	err error
}

func (f fakeSource) Load() ([]store.Observation, error) {
	return f.obs, f.err
}

func testEstimator() *estimator.Estimator {
	return estimator.NewEstimator(estimator.Config{
		PeakWindow: 24 * time.Hour,
		Forecast: estimator.ForecastConfig{
			MinPoints: 20,
			Periods:   24,
			Step:      time.Hour,
		},
		HeatmapMinRecords: 10,
	}, estimator.NewTrendSeasonalModel(0.8))
}

func observations(n int) []store.Observation {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]store.Observation, n)
	for i := range obs {
		obs[i] = store.Observation{
			Timestamp: base.Add(time.Duration(i) * 30 * time.Minute),
			Players:   1000 + 10*i,
			Servers:   50 + i%3,
		}
	}
	return obs
}

func do(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	a := NewAPIServer("", fakeSource{obs: observations(3)}, testEstimator())

	rec := do(t, a.Handler(), "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Players != 1020 || got.PlayersDelta != 10 {
		t.Fatalf("summary = %+v, want players=1020 delta=10", got)
	}
	if got.Observations != 3 {
		t.Fatalf("observations = %d, want 3", got.Observations)
	}
}

func TestEmptyStoreReturnsNotFound(t *testing.T) {
	a := NewAPIServer("", fakeSource{obs: []store.Observation{}}, testEstimator())

	for _, path := range []string{"/api/summary", "/api/forecast", "/api/heatmap", "/api/observations"} {
		rec := do(t, a.Handler(), path, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestLoadErrorReturnsServerError(t *testing.T) {
	a := NewAPIServer("", fakeSource{err: errors.New("disk gone")}, testEstimator())

	rec := do(t, a.Handler(), "/api/summary", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	rec = do(t, a.Handler(), "/", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("dashboard status = %d, want 500", rec.Code)
	}
}

func TestForecastEndpointGating(t *testing.T) {
	short := NewAPIServer("", fakeSource{obs: observations(19)}, testEstimator())
	rec := do(t, short.Handler(), "/api/forecast", nil)
	var got forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.State != "insufficient" || len(got.Points) != 0 {
		t.Fatalf("forecast with 19 records = %+v, want insufficient without points", got)
	}

	enough := NewAPIServer("", fakeSource{obs: observations(20)}, testEstimator())
	rec = do(t, enough.Handler(), "/api/forecast", nil)
	got = forecastResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.State != "ready" {
		t.Fatalf("state = %q (%s), want ready", got.State, got.Error)
	}
	if len(got.Points) != 20+24 {
		t.Fatalf("len(points) = %d, want 44", len(got.Points))
	}
	if !strings.Contains(got.Summary, "net increase") {
		t.Fatalf("summary = %q, want a net increase", got.Summary)
	}
}

func TestHeatmapEndpointGating(t *testing.T) {
	short := NewAPIServer("", fakeSource{obs: observations(10)}, testEstimator())
	if rec := do(t, short.Handler(), "/api/heatmap", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status with 10 records = %d, want 404", rec.Code)
	}

	enough := NewAPIServer("", fakeSource{obs: observations(11)}, testEstimator())
	rec := do(t, enough.Handler(), "/api/heatmap", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with 11 records = %d, want 200", rec.Code)
	}
	var got heatmapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Days) != 7 || got.Days[0] != "Monday" {
		t.Fatalf("days = %v", got.Days)
	}
	// 00:00 and 00:30 on Monday average to 1005.
	if v := got.Values[0][0]; v == nil || *v != 1005 {
		t.Fatalf("Monday 00 = %v, want 1005", v)
	}
	if got.Values[1][0] != nil {
		t.Fatalf("Tuesday 00 = %v, want null", *got.Values[1][0])
	}
}

func TestObservationsLimit(t *testing.T) {
	a := NewAPIServer("", fakeSource{obs: observations(5)}, testEstimator())

	rec := do(t, a.Handler(), "/api/observations?limit=2", nil)
	var got struct {
		Observations []observationResponse `json:"observations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Observations) != 2 || got.Observations[1].Players != 1040 {
		t.Fatalf("observations = %+v, want last two", got.Observations)
	}

	if rec := do(t, a.Handler(), "/api/observations?limit=zero", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	a := NewAPIServer("secret", fakeSource{obs: observations(2)}, testEstimator())

	if rec := do(t, a.Handler(), "/api/summary", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}
	rec := do(t, a.Handler(), "/api/summary", http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rec.Code)
	}
	if rec := do(t, a.Handler(), "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestDashboardIsPublicWithAPIKey(t *testing.T) {
	a := NewAPIServer("secret", fakeSource{obs: observations(2)}, testEstimator())

	rec := do(t, a.Handler(), "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status without token = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Current Status") {
		t.Fatal("dashboard did not render panels")
	}
	if rec := do(t, a.Handler(), "/api/observations", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("observations status without token = %d, want 401", rec.Code)
	}
}

func TestDashboardEmpty(t *testing.T) {
	a := NewAPIServer("", fakeSource{obs: []store.Observation{}}, testEstimator())

	rec := do(t, a.Handler(), "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No data available") {
		t.Fatal("empty dashboard lacks the no-data notice")
	}
	if strings.Contains(body, "Current Status") {
		t.Fatal("empty dashboard rendered panels")
	}
}

func TestDashboardPanels(t *testing.T) {
	few := NewAPIServer("", fakeSource{obs: observations(5)}, testEstimator())
	body := do(t, few.Handler(), "/", nil).Body.String()
	for _, want := range []string{"Current Status", "1,040", "(Currently 5/20 points)", "Not enough data to generate the activity heatmap"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}

	many := NewAPIServer("", fakeSource{obs: observations(30)}, testEstimator())
	body = do(t, many.Handler(), "/", nil).Body.String()
	for _, want := range []string{"Predicted Trend", "The model expects a net increase", `id="heatmap"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestForecastChartBandIsClosed(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []estimator.ForecastPoint{
		{Timestamp: base, Yhat: 10, Lower: 8, Upper: 12},
		{Timestamp: base.Add(time.Hour), Yhat: 20, Lower: 15, Upper: 25},
	}
	chart := forecastChartOf(chartSeries{}, points)

	wantY := []float64{12, 25, 15, 8}
	for i, y := range wantY {
		if chart.Band.Y[i] != y {
			t.Fatalf("band y = %v, want %v", chart.Band.Y, wantY)
		}
	}
	if chart.Band.X[0] != chart.Band.X[3] || chart.Band.X[1] != chart.Band.X[2] {
		t.Fatalf("band x = %v, want mirrored timestamps", chart.Band.X)
	}
}
