package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/grafana"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/queue"
	"github.com/openntia/pfewatch/internal/router"
	"github.com/openntia/pfewatch/internal/services"
	"github.com/openntia/pfewatch/internal/tsdb"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Analyzer service starting...",
		"version", Version, "commit", GitCommit, "build_time", BuildTime)

	// Connect to the time-series store
	logger.Info("Connecting to InfluxDB", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
	fetcher := tsdb.NewInfluxFetcher(cfg.Influx, logger)
	defer fetcher.Close()

	// Connect to the alert bus (configurable backend, "none" disables it)
	logger.Info("Connecting to alert bus", "type", cfg.Queue.Type, "subject", cfg.Queue.Subject)
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to alert bus", "error", err)
	}
	defer func() { _ = publisher.Close() }()

	// Grafana collaborators
	links := grafana.NewLinkBuilder(cfg.Grafana)
	grafanaClient := grafana.NewClient(cfg.Grafana, logger)

	// Detection pipeline
	analyzer, err := services.NewAnalyzerService(logger, fetcher, links, publisher, cfg.Detection, cfg.Queue.Subject)
	if err != nil {
		logger.Fatal("Failed to initialize analyzer", "error", err)
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, analyzer, grafanaClient, *cfg)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
