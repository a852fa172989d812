package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/openntia/pfewatch/internal/models"
	"github.com/openntia/pfewatch/internal/services"
	"github.com/openntia/pfewatch/internal/utils"
)

// Analyze handles POST /v1/analyze: run one detection pass with the
// parameters in the JSON body, all optional.
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req services.AnalyzeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Invalid request body: " + err.Error(),
				},
			})
		}
	}
	return h.runAnalyze(c, req)
}

// AnalyzeQuery handles GET /v1/analyze with the same parameters as query
// strings, for curl convenience and dashboards.
func (h *Handler) AnalyzeQuery(c *fiber.Ctx) error {
	var req services.AnalyzeRequest

	if v := c.Query("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return badQueryParam(c, "lookback_hours", v)
		}
		req.LookbackHours = n
	}
	if v := c.Query("min_consecutive_samples"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return badQueryParam(c, "min_consecutive_samples", v)
		}
		req.MinConsecutiveSamples = n
	}
	if v := c.Query("use_ml"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badQueryParam(c, "use_ml", v)
		}
		req.UseML = &b
	}
	if v := c.Query("ml_confidence_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return badQueryParam(c, "ml_confidence_threshold", v)
		}
		req.MLConfidenceThreshold = &f
	}
	if v := c.Query("use_dynamic_baseline"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badQueryParam(c, "use_dynamic_baseline", v)
		}
		req.UseDynamicBaseline = &b
	}

	return h.runAnalyze(c, req)
}

func (h *Handler) runAnalyze(c *fiber.Ctx, req services.AnalyzeRequest) error {
	ctx, cancel := context.WithTimeout(c.Context(), utils.AnalyzeTimeout)
	defer cancel()

	result, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    svcErr.Code,
					Message: svcErr.Message,
					Details: svcErr.Details,
				},
			})
		}
		h.logger.Error("Analysis failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ANALYZE_FAILED",
				Message: "Analysis failed",
			},
		})
	}

	return c.JSON(result)
}

func badQueryParam(c *fiber.Ctx, name, value string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: "Invalid query parameter " + name + ": " + value,
		},
	})
}
