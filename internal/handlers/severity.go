package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Severities handles GET /v1/severities: the active exception-type to
// severity mapping, including configured overrides.
func (h *Handler) Severities(c *fiber.Ctx) error {
	m := h.analyzer.Severities()

	out := make(map[string]string, len(m))
	for exception, severity := range m {
		out[exception] = severity.String()
	}
	return c.JSON(fiber.Map{
		"severities": out,
		"default":    "LOW",
	})
}
