package exporter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

const shutdownTimeout = 5 * time.Second

type ObservationSource interface {
	Load() ([]store.Observation, error)
}

type APIServer struct {
	apiKey    string
	source    ObservationSource
	estimator *estimator.Estimator
	engine    *gin.Engine
}

func NewAPIServer(apiKey string, source ObservationSource, est *estimator.Estimator) *APIServer {
	a := &APIServer{
		apiKey:    apiKey,
		source:    source,
		estimator: est,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(dashboardTemplate)

	// Browsers cannot attach a bearer token, so the dashboard stays outside the api group.
	r.GET("/", a.handleDashboard)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(a.authMiddleware())
	api.GET("/summary", a.handleSummary)
	api.GET("/forecast", a.handleForecast)
	api.GET("/heatmap", a.handleHeatmap)
	api.GET("/observations", a.handleObservations)

	a.engine = r
	return a
}

func (a *APIServer) Handler() http.Handler {
	return a.engine
}

// StartServer serves until ctx is cancelled.
func (a *APIServer) StartServer(ctx context.Context, addr string) error {
	return serve(ctx, addr, a.engine)
}

// authMiddleware is a no-op when no API key is configured.
func (a *APIServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.apiKey == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if auth != "Bearer "+a.apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// loadObservations writes the error response itself and reports whether the
// handler should continue.
func (a *APIServer) loadObservations(c *gin.Context) ([]store.Observation, bool) {
	obs, err := a.source.Load()
	if err != nil {
		slog.Error("Failed to load observations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load observations"})
		return nil, false
	}
	if len(obs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data available"})
		return nil, false
	}
	return obs, true
}

func (a *APIServer) handleSummary(c *gin.Context) {
	obs, ok := a.loadObservations(c)
	if !ok {
		return
	}
	summary, _ := a.estimator.Summary(obs)
	c.JSON(http.StatusOK, summaryToResponse(summary))
}

func (a *APIServer) handleForecast(c *gin.Context) {
	obs, ok := a.loadObservations(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, forecastToResponse(a.estimator.Forecast(c.Request.Context(), obs)))
}

func (a *APIServer) handleHeatmap(c *gin.Context) {
	obs, ok := a.loadObservations(c)
	if !ok {
		return
	}
	hm, ok := a.estimator.Heatmap(obs)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough data to generate the activity heatmap"})
		return
	}
	c.JSON(http.StatusOK, heatmapToResponse(hm))
}

func (a *APIServer) handleObservations(c *gin.Context) {
	obs, ok := a.loadObservations(c)
	if !ok {
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if limit < len(obs) {
			obs = obs[len(obs)-limit:]
		}
	}

	response := make([]observationResponse, 0, len(obs))
	for _, o := range obs {
		response = append(response, observationToResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"observations": response})
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
