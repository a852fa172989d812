package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/openntia/pfewatch/internal/models"
)

// ListDashboards handles GET /v1/dashboards: the Grafana dashboards
// visible to the configured token.
func (h *Handler) ListDashboards(c *fiber.Ctx) error {
	dashboards, err := h.grafana.ListDashboards(c.Context())
	if err != nil {
		h.logger.Error("Dashboard list failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "GRAFANA_UNAVAILABLE",
				Message: "Failed to list dashboards",
			},
		})
	}
	return c.JSON(fiber.Map{
		"dashboards": dashboards,
		"total":      len(dashboards),
	})
}

// GetDashboard handles GET /v1/dashboards/:uid.
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	uid := c.Params("uid")
	doc, err := h.grafana.GetDashboard(c.Context(), uid)
	if err != nil {
		h.logger.Error("Dashboard fetch failed", "uid", uid, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "GRAFANA_UNAVAILABLE",
				Message: "Failed to fetch dashboard " + uid,
			},
		})
	}
	return c.JSON(doc)
}
