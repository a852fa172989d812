// Package handlers contains the HTTP handlers of the analyzer service.
package handlers

import (
	"time"

	"github.com/openntia/pfewatch/internal/grafana"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/services"
)

// Version is the reported service version.
const Version = "1.0.0"

// ServiceName identifies this service in health responses and alerts.
const ServiceName = "pfewatch-analyzer"

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	analyzer *services.AnalyzerService
	grafana  *grafana.Client
	started  time.Time
}

// New creates a new handler instance
func New(logger *logging.Logger, analyzer *services.AnalyzerService, grafanaClient *grafana.Client) *Handler {
	if logger == nil {
		logger = logging.Global()
	}
	return &Handler{
		logger:   logger,
		analyzer: analyzer,
		grafana:  grafanaClient,
		started:  time.Now(),
	}
}
