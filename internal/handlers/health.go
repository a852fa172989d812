package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openntia/pfewatch/internal/models"
)

// Health handles health check requests. Always healthy while the process
// is up: the analyzer holds no state worth degrading over, and a broken
// datastore surfaces as FETCH_FAILED on analysis instead.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:        "healthy",
		Service:       ServiceName,
		Timestamp:     time.Now().Format(time.RFC3339),
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
