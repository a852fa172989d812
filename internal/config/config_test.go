package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "lookback below one hour",
			mutate:  func(c *Config) { c.Detection.LookbackHours = 0 },
			wantErr: true,
		},
		{
			name:    "zero consecutive samples",
			mutate:  func(c *Config) { c.Detection.MinConsecutiveSamples = 0 },
			wantErr: true,
		},
		{
			name:    "ml confidence threshold above one",
			mutate:  func(c *Config) { c.Detection.MLConfidenceThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "contamination at half",
			mutate:  func(c *Config) { c.Detection.MLContamination = 0.5 },
			wantErr: true,
		},
		{
			name:    "ewma alpha above one",
			mutate:  func(c *Config) { c.Detection.EWMAAlpha = 1.2 },
			wantErr: true,
		},
		{
			name: "unknown severity name",
			mutate: func(c *Config) {
				c.Detection.Severities = map[string]string{"hw_error": "fatal"}
			},
			wantErr: true,
		},
		{
			name: "valid severity overrides",
			mutate: func(c *Config) {
				c.Detection.Severities = map[string]string{"hw_error": "critical", "resolve": "low"}
			},
			wantErr: false,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 3333 {
		t.Errorf("expected HTTPPort 3333, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Influx.Bucket != "juniper" {
		t.Errorf("expected bucket juniper, got %s", cfg.Influx.Bucket)
	}

	if cfg.Queue.Type != "none" {
		t.Errorf("expected queue type none, got %s", cfg.Queue.Type)
	}

	if cfg.Detection.LookbackHours != 1 {
		t.Errorf("expected lookback 1h, got %d", cfg.Detection.LookbackHours)
	}

	if cfg.Detection.BaselineDays != 2 {
		t.Errorf("expected baseline span 2 days, got %d", cfg.Detection.BaselineDays)
	}

	if cfg.Detection.LongWindow != 168*time.Hour {
		t.Errorf("expected long window 168h, got %v", cfg.Detection.LongWindow)
	}

	if !cfg.Detection.UseML || !cfg.Detection.UseDynamicBaseline {
		t.Error("ML and dynamic baselines should default on")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  http_port: 4444
detection:
  lookback_hours: 6
  severities:
    hw_error: critical
queue:
  type: memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 4444 {
		t.Errorf("expected overridden port 4444, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Detection.LookbackHours != 6 {
		t.Errorf("expected overridden lookback 6, got %d", cfg.Detection.LookbackHours)
	}

	if got := cfg.Detection.Severities["hw_error"]; got != "critical" {
		t.Errorf("expected severity override critical, got %q", got)
	}

	// Keys absent from the file keep their defaults
	if cfg.Influx.Org != "juniper" {
		t.Errorf("expected default org juniper, got %s", cfg.Influx.Org)
	}

	if cfg.Queue.Type != "memory" {
		t.Errorf("expected queue type memory, got %s", cfg.Queue.Type)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
detection:
  lookback_hours: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for zero lookback")
	}
}
