// Package config loads the service configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"campaign-analytics/internal/dataset"
	"campaign-analytics/pkg/logger"
	"campaign-analytics/pkg/utils"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultAddr            = ":8000"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSource          = "data/campaigns.csv"
	DefaultDatasetTimeout  = 30 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Environment variables that override file values.
const (
	EnvAddr           = "ANALYTICS_ADDR"
	EnvDatasetSource  = "ANALYTICS_DATASET_SOURCE"
	EnvDatasetTimeout = "ANALYTICS_DATASET_TIMEOUT"
	EnvSnapshotPath   = "ANALYTICS_SNAPSHOT_PATH"
	EnvLogLevel       = "ANALYTICS_LOG_LEVEL"
)

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatasetConfig describes where the campaign CSV comes from.
type DatasetConfig struct {
	// Source is an HTTP(S) URL or a local file path.
	Source string `yaml:"source"`

	// Timeout bounds a single fetch+parse attempt.
	Timeout time.Duration `yaml:"timeout"`

	// Watch reloads a local Source whenever the file changes.
	Watch bool `yaml:"watch"`

	Retry dataset.RetryConfig `yaml:"retry"`
}

// SnapshotConfig configures the sqlite snapshot store.
type SnapshotConfig struct {
	// Path is the sqlite file. Empty disables persistence.
	Path string `yaml:"path"`

	// Fallback serves the latest snapshot when the source cannot be loaded.
	Fallback bool `yaml:"fallback"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
}

// Logger converts the section into a logger.Config.
func (l LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:       l.Level,
		Encoding:    l.Encoding,
		Development: l.Development,
	}
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the YAML config file at path, applies environment overrides
// and validates the result. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Dataset: DatasetConfig{
			Source:  DefaultSource,
			Timeout: DefaultDatasetTimeout,
			Retry:   dataset.DefaultRetryConfig,
		},
		Snapshot: SnapshotConfig{Fallback: true},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvDatasetSource); v != "" {
		cfg.Dataset.Source = v
	}
	cfg.Dataset.Timeout = utils.ParseDuration(os.Getenv(EnvDatasetTimeout), cfg.Dataset.Timeout)
	if v := os.Getenv(EnvSnapshotPath); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 || cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if strings.TrimSpace(cfg.Dataset.Source) == "" {
		return fmt.Errorf("dataset.source is required")
	}
	if cfg.Dataset.Timeout <= 0 {
		return fmt.Errorf("dataset.timeout must be positive")
	}
	if cfg.Dataset.Watch && dataset.IsRemote(cfg.Dataset.Source) {
		return fmt.Errorf("dataset.watch requires a local source, got %q", cfg.Dataset.Source)
	}
	if cfg.Dataset.Retry.MaxAttempts < 1 {
		return fmt.Errorf("dataset.retry.max_attempts must be at least 1")
	}
	if cfg.Dataset.Retry.InitialDelay < 0 || cfg.Dataset.Retry.MaxDelay < 0 {
		return fmt.Errorf("dataset.retry delays must not be negative")
	}
	if cfg.Dataset.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("dataset.retry.backoff_multiplier must be at least 1")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("log.encoding: unknown encoding %q", cfg.Log.Encoding)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	return nil
}
