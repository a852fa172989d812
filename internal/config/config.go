package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	Grafana   GrafanaConfig   `mapstructure:"grafana"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Detection DetectionConfig `mapstructure:"detection"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// InfluxConfig represents the time-series store connection
type InfluxConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"` // measurement holding raw counters (default: pfe)
	Field       string `mapstructure:"field"`       // counter field name (default: count)
}

// GrafanaConfig represents the dashboard collaborator
type GrafanaConfig struct {
	URL          string `mapstructure:"url"`
	Token        string `mapstructure:"token"`
	DashboardUID string `mapstructure:"dashboard_uid"` // PFE exceptions dashboard
	OrgID        int    `mapstructure:"org_id"`
}

// QueueConfig represents the detection alert bus configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`    // nats (default), redis, kafka, memory, none
	URL      string `mapstructure:"url"`     // e.g. nats://localhost:4222, redis://localhost:6379
	Subject  string `mapstructure:"subject"` // publish subject/topic (default: pfewatch.detections)
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"` // stream prefix (default: "pfewatch")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// DetectionConfig carries the detection engine tunables. Thresholds default
// to the values the rules were designed around; the severity map assigns a
// state to each exception type, unmapped types default to low.
type DetectionConfig struct {
	LookbackHours         int     `mapstructure:"lookback_hours"`          // recent window (default: 1)
	MinConsecutiveSamples int     `mapstructure:"min_consecutive_samples"` // rule 1 run length (default: 3)
	RateThreshold         float64 `mapstructure:"rate_threshold"`          // exc/s floor for emergence (default: 0.5)
	ActivityFloor         float64 `mapstructure:"activity_floor"`          // below this a series is idle (default: 0.1)
	BaselineDays          int     `mapstructure:"baseline_days"`           // static baseline span (default: 2)
	MinBaselineSamples    int     `mapstructure:"min_baseline_samples"`    // default: 10
	Workers               int     `mapstructure:"workers"`                 // per-key workers (default: NumCPU)

	UseML                 bool    `mapstructure:"use_ml"`                  // default: true
	MLConfidenceThreshold float64 `mapstructure:"ml_confidence_threshold"` // default: 0.65
	MLContamination       float64 `mapstructure:"ml_contamination"`        // default: 0.15

	UseDynamicBaseline bool          `mapstructure:"use_dynamic_baseline"` // default: true
	ShortWindow        time.Duration `mapstructure:"short_window"`         // default: 2h
	MediumWindow       time.Duration `mapstructure:"medium_window"`        // default: 24h
	LongWindow         time.Duration `mapstructure:"long_window"`          // default: 168h
	EWMAAlpha          float64       `mapstructure:"ewma_alpha"`           // default: 0.3

	// Severities maps exception type -> critical|high|medium|low
	Severities map[string]string `mapstructure:"severities"`
}

// AuthConfig represents API key authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates detection configuration
func (c *DetectionConfig) Validate() error {
	if c.LookbackHours < 1 {
		return fmt.Errorf("lookback_hours must be at least 1")
	}

	if c.MinConsecutiveSamples < 1 {
		return fmt.Errorf("min_consecutive_samples must be at least 1")
	}

	if c.MLConfidenceThreshold < 0 || c.MLConfidenceThreshold > 1 {
		return fmt.Errorf("ml_confidence_threshold must be in [0,1]")
	}

	if c.MLContamination <= 0 || c.MLContamination >= 0.5 {
		return fmt.Errorf("ml_contamination must be in (0,0.5)")
	}

	if c.EWMAAlpha <= 0 || c.EWMAAlpha > 1 {
		return fmt.Errorf("ewma_alpha must be in (0,1]")
	}

	validSeverities := map[string]bool{
		"critical": true,
		"high":     true,
		"medium":   true,
		"low":      true,
	}
	for exc, sev := range c.Severities {
		if !validSeverities[sev] {
			return fmt.Errorf("severities[%s]: unknown severity %q", exc, sev)
		}
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
