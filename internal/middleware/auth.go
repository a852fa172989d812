// Package middleware guards and error-wraps the analyzer's HTTP surface.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
)

// MinAPIKeyLength is the shortest key the analyzer accepts. Shorter keys
// are dropped at startup rather than silently weakening the deployment.
const MinAPIKeyLength = 32

// APIKeyAuth protects the /v1 routes with the keys from the auth config.
// With auth disabled the middleware is a passthrough; the service binary
// logs that state loudly at startup.
func APIKeyAuth(logger *logging.Logger, cfg config.AuthConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	keys := loadKeys(logger, cfg.APIKeys)

	return func(c *fiber.Ctx) error {
		key := requestKey(c)
		if key == "" {
			logger.Warn("Request without API key rejected",
				"method", c.Method(),
				"path", c.Path(),
				"ip", c.IP(),
			)
			return reject(c, "API key required via X-API-Key or Authorization header")
		}

		if _, ok := keys[key]; !ok {
			logger.Warn("Request with unknown API key rejected",
				"method", c.Method(),
				"path", c.Path(),
				"ip", c.IP(),
				"key", maskKey(key),
			)
			return reject(c, "Invalid API key")
		}

		return c.Next()
	}
}

// loadKeys filters the configured keys down to the usable set, logging
// each one that fails the length check.
func loadKeys(logger *logging.Logger, configured []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(configured))
	for _, key := range configured {
		if len(key) < MinAPIKeyLength || strings.TrimSpace(key) == "" {
			logger.Warn("Dropping weak API key",
				"key", maskKey(key),
				"length", len(key),
				"min_length", MinAPIKeyLength,
			)
			continue
		}
		keys[key] = struct{}{}
	}

	if len(keys) == 0 {
		logger.Error("Auth enabled but no usable API keys; every /v1 request will be rejected",
			"configured", len(configured))
	}
	return keys
}

// requestKey pulls the API key out of a request. X-API-Key wins; the
// Authorization header is accepted both as "Bearer <key>" and bare.
func requestKey(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	auth := c.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return auth
}

func reject(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: message,
			Path:    c.Path(),
		},
	})
}

// maskKey keeps a loggable prefix of a key without exposing it.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
