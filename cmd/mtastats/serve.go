package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rxtx-hosting/mtastats/internal/config"
	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/exporter"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard, JSON API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.ServerAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dashboard listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting mtastats reporter", "data_file", cfg.DataFile, "address", cfg.ServerAddr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source := store.NewCachedStore(openStore(cfg), cfg.CacheTTL)
	est := newEstimator(cfg)

	apiServer := exporter.NewAPIServer(cfg.APIKey, source, est)
	errCh := make(chan error, 2)
	running := 1

	go func() {
		slog.Info("Starting API server", "address", cfg.ServerAddr)
		errCh <- apiServer.StartServer(ctx, cfg.ServerAddr)
	}()

	var promExporter *exporter.PrometheusExporter
	if cfg.PrometheusAddr != "" {
		promExporter = exporter.NewPrometheusExporter()
		running++
		go func() {
			slog.Info("Starting Prometheus server", "address", cfg.PrometheusAddr)
			errCh <- promExporter.StartServer(ctx, cfg.PrometheusAddr)
		}()
		refreshMetrics(ctx, source, est, promExporter)
	}

	metricsTicker := time.NewTicker(cfg.MetricsInterval)
	defer metricsTicker.Stop()

	slog.Info("mtastats reporter started successfully")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Received shutdown signal, cleaning up...")
			return awaitServers(errCh, running)

		case err := <-errCh:
			cancel()
			if rest := awaitServers(errCh, running-1); !isServerError(err) {
				return rest
			}
			return err

		case <-metricsTicker.C:
			if promExporter != nil {
				refreshMetrics(ctx, source, est, promExporter)
			}
		}
	}
}

// awaitServers blocks until n servers have reported back after shutdown and
// returns the first real failure.
func awaitServers(errCh <-chan error, n int) error {
	var first error
	for i := 0; i < n; i++ {
		if err := <-errCh; isServerError(err) && first == nil {
			first = err
		}
	}
	return first
}

func isServerError(err error) bool {
	return err != nil && !errors.Is(err, http.ErrServerClosed)
}

func refreshMetrics(ctx context.Context, source exporter.ObservationSource, est *estimator.Estimator, p *exporter.PrometheusExporter) {
	obs, err := source.Load()
	if err != nil {
		slog.Error("Error loading observations", "error", err)
		return
	}
	report, ok := est.BuildReport(ctx, obs)
	if !ok {
		slog.Debug("No observations yet, skipping metrics refresh")
		return
	}
	p.UpdateStats(report)
	slog.Debug("Metrics refreshed", "observations", report.Summary.Observations, "players", report.Summary.Players)
}
