// Package router wires the HTTP routes and global middlewares.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/grafana"
	"github.com/openntia/pfewatch/internal/handlers"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/middleware"
	"github.com/openntia/pfewatch/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, analyzer *services.AnalyzerService, grafanaClient *grafana.Client, cfg config.Config) *handlers.Handler {
	if logger == nil {
		logger = logging.Global()
	}
	h := handlers.New(logger, analyzer, grafanaClient)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Detection
	v1.Post("/analyze", h.Analyze)
	v1.Get("/analyze", h.AnalyzeQuery)

	// Severity mapping
	v1.Get("/severities", h.Severities)

	// Grafana dashboards
	v1.Get("/dashboards", h.ListDashboards)
	v1.Get("/dashboards/:uid", h.GetDashboard)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analyzer *services.AnalyzerService, grafanaClient *grafana.Client, cfg config.Config) *fiber.App {
	if logger == nil {
		logger = logging.Global()
	}
	app := fiber.New(fiber.Config{
		AppName:               "pfewatch analyzer",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, analyzer, grafanaClient, cfg)

	return app
}
