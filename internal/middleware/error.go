package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
)

// ErrorHandler converts errors escaping the handlers into the same JSON
// envelope the API uses everywhere else, with a status-derived code and
// the request path for correlation.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		logger.Error("Unhandled request error",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)

		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    statusCode(status),
				Message: message,
				Path:    c.Path(),
			},
		})
	}
}

func statusCode(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case status == fiber.StatusNotFound:
		return "NOT_FOUND"
	case status >= fiber.StatusInternalServerError:
		return "INTERNAL_ERROR"
	default:
		return "REQUEST_ERROR"
	}
}
