package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Endpoint              string        `yaml:"endpoint"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`
	DataFile              string        `yaml:"data_file"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
	ServerAddr            string        `yaml:"server_addr"`
	APIKey                string        `yaml:"api_key"`
	PrometheusAddr        string        `yaml:"prometheus_addr"`
	MetricsInterval       time.Duration `yaml:"metrics_interval"`
	PeakWindow            time.Duration `yaml:"peak_window"`
	ForecastMinPoints     int           `yaml:"forecast_min_points"`
	ForecastPeriods       int           `yaml:"forecast_periods"`
	ForecastStep          time.Duration `yaml:"forecast_step"`
	ForecastIntervalWidth float64       `yaml:"forecast_interval_width"`
	HeatmapMinRecords     int           `yaml:"heatmap_min_records"`
	LogLevel              string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Endpoint:              "https://multitheftauto.com/count/",
		RequestTimeout:        10 * time.Second,
		DataFile:              "data/mta_history.csv",
		CacheTTL:              10 * time.Minute,
		ServerAddr:            ":8080",
		MetricsInterval:       time.Minute,
		PeakWindow:            24 * time.Hour,
		ForecastMinPoints:     20,
		ForecastPeriods:       24,
		ForecastStep:          time.Hour,
		ForecastIntervalWidth: 0.8,
		HeatmapMinRecords:     10,
		LogLevel:              "info",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must be set"))
	}
	if c.DataFile == "" {
		errs = append(errs, errors.New("data_file must be set"))
	}
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"request_timeout", c.RequestTimeout},
		{"cache_ttl", c.CacheTTL},
		{"metrics_interval", c.MetricsInterval},
		{"peak_window", c.PeakWindow},
		{"forecast_step", c.ForecastStep},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", f.name, f.d))
		}
	}
	if c.ForecastMinPoints < 2 {
		errs = append(errs, fmt.Errorf("forecast_min_points must be at least 2, got %d", c.ForecastMinPoints))
	}
	if c.ForecastPeriods <= 0 {
		errs = append(errs, fmt.Errorf("forecast_periods must be positive, got %d", c.ForecastPeriods))
	}
	if c.ForecastIntervalWidth <= 0 || c.ForecastIntervalWidth >= 1 {
		errs = append(errs, fmt.Errorf("forecast_interval_width must be in (0,1), got %v", c.ForecastIntervalWidth))
	}
	if c.HeatmapMinRecords < 0 {
		errs = append(errs, fmt.Errorf("heatmap_min_records must not be negative, got %d", c.HeatmapMinRecords))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
