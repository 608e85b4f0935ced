package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rxtx-hosting/mtastats/internal/config"
	"github.com/rxtx-hosting/mtastats/pkg/estimator"
	"github.com/rxtx-hosting/mtastats/pkg/store"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mtastats",
		Short:         "Collect and chart MTA:SA player counts",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if err := configureLogging(cfg.LogLevel); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "/etc/mtastats/config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(collectCmd(opts))
	root.AddCommand(serveCmd(opts))
	root.AddCommand(reportCmd(opts))
	return root
}

func configureLogging(level string) error {
	var parsed slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		parsed = slog.LevelDebug
	case "", "info":
		parsed = slog.LevelInfo
	case "warn", "warning":
		parsed = slog.LevelWarn
	case "error":
		parsed = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q", level)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parsed,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

func newEstimator(cfg *config.Config) *estimator.Estimator {
	return estimator.NewEstimator(estimator.Config{
		PeakWindow: cfg.PeakWindow,
		Forecast: estimator.ForecastConfig{
			MinPoints: cfg.ForecastMinPoints,
			Periods:   cfg.ForecastPeriods,
			Step:      cfg.ForecastStep,
		},
		HeatmapMinRecords: cfg.HeatmapMinRecords,
	}, estimator.NewTrendSeasonalModel(cfg.ForecastIntervalWidth))
}

func openStore(cfg *config.Config) *store.Store {
	return store.New(cfg.DataFile, nil)
}
