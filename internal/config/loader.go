package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pfewatch")
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("PFEWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 3333)

	// Influx defaults
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.org", "juniper")
	v.SetDefault("influx.bucket", "juniper")
	v.SetDefault("influx.measurement", "pfe")
	v.SetDefault("influx.field", "count")

	// Grafana defaults
	v.SetDefault("grafana.url", "http://localhost:3000")
	v.SetDefault("grafana.dashboard_uid", "pfe-exceptions")
	v.SetDefault("grafana.org_id", 1)

	// Queue defaults
	v.SetDefault("queue.type", "none")
	v.SetDefault("queue.url", "nats://localhost:4222")
	v.SetDefault("queue.subject", "pfewatch.detections")
	v.SetDefault("queue.redis_stream", "pfewatch")

	// Detection defaults
	v.SetDefault("detection.lookback_hours", 1)
	v.SetDefault("detection.min_consecutive_samples", 3)
	v.SetDefault("detection.rate_threshold", 0.5)
	v.SetDefault("detection.activity_floor", 0.1)
	v.SetDefault("detection.baseline_days", 2)
	v.SetDefault("detection.min_baseline_samples", 10)
	v.SetDefault("detection.use_ml", true)
	v.SetDefault("detection.ml_confidence_threshold", 0.65)
	v.SetDefault("detection.ml_contamination", 0.15)
	v.SetDefault("detection.use_dynamic_baseline", true)
	v.SetDefault("detection.short_window", "2h")
	v.SetDefault("detection.medium_window", "24h")
	v.SetDefault("detection.long_window", "168h")
	v.SetDefault("detection.ewma_alpha", 0.3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 3333,
		},
		Influx: InfluxConfig{
			URL:         "http://localhost:8086",
			Org:         "juniper",
			Bucket:      "juniper",
			Measurement: "pfe",
			Field:       "count",
		},
		Grafana: GrafanaConfig{
			URL:          "http://localhost:3000",
			DashboardUID: "pfe-exceptions",
			OrgID:        1,
		},
		Queue: QueueConfig{
			Type:        "none",
			URL:         "nats://localhost:4222",
			Subject:     "pfewatch.detections",
			RedisStream: "pfewatch",
		},
		Detection: DefaultDetectionConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

// DefaultDetectionConfig returns the detection tunables with their design defaults
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		LookbackHours:         1,
		MinConsecutiveSamples: 3,
		RateThreshold:         0.5,
		ActivityFloor:         0.1,
		BaselineDays:          2,
		MinBaselineSamples:    10,
		UseML:                 true,
		MLConfidenceThreshold: 0.65,
		MLContamination:       0.15,
		UseDynamicBaseline:    true,
		ShortWindow:           2 * time.Hour,
		MediumWindow:          24 * time.Hour,
		LongWindow:            168 * time.Hour,
		EWMAAlpha:             0.3,
	}
}
