package middleware

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
)

func errorApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logging.NewDevelopment()),
	})
	app.Get("/v1/analyze", handler)
	return app
}

func TestErrorHandlerEnvelope(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "fiber status error",
			err:        fiber.ErrServiceUnavailable,
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Service Unavailable",
		},
		{
			name:       "fiber client error",
			err:        fiber.NewError(fiber.StatusUnprocessableEntity, "bad payload"),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   "REQUEST_ERROR",
			wantMsg:    "bad payload",
		},
		{
			name:       "unauthorized",
			err:        fiber.ErrUnauthorized,
			wantStatus: fiber.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
			wantMsg:    "Unauthorized",
		},
		{
			name:       "not found",
			err:        fiber.ErrNotFound,
			wantStatus: fiber.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "Not Found",
		},
		{
			name:       "plain error stays opaque",
			err:        errors.New("influx exploded"),
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := errorApp(func(c *fiber.Ctx) error {
				return tc.err
			})

			status, body := get(t, app, nil)
			assert.Equal(t, tc.wantStatus, status)

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tc.wantCode, errResp.Error.Code)
			assert.Equal(t, tc.wantMsg, errResp.Error.Message)
			assert.Equal(t, "/v1/analyze", errResp.Error.Path)
		})
	}
}
