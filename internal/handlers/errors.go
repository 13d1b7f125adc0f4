package handlers

import (
	"errors"
	"log/slog"

	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/middleware"
	"github.com/captureai/backend/internal/services"
	"github.com/captureai/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto the error taxonomy. Validation
// failures carry the field name; auth failures stay generic; quota failures
// carry machine-readable limit state; anything unexpected is logged in full
// and returned as a bare 500.
func respondError(c *fiber.Ctx, err error) error {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: vErr.Message,
			Field: vErr.Field,
		})
	}

	if errors.Is(err, services.ErrUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: "Invalid or missing license key",
		})
	}

	var qErr *services.QuotaError
	if errors.As(err, &qErr) {
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.QuotaResponse{
			Error:     qErr.Error(),
			Limit:     qErr.Limit,
			Used:      qErr.Used,
			LimitType: qErr.LimitType,
			Tier:      qErr.Tier,
		})
	}

	var uErr *services.UpstreamError
	if errors.As(err, &uErr) {
		slog.Error("upstream call failed", "request_id", middleware.RequestID(c), "service", uErr.Service, "status", uErr.Status, "error", uErr.Message, "path", c.Path())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: uErr.Error(),
		})
	}

	slog.Error("unhandled error", "request_id", middleware.RequestID(c), "method", c.Method(), "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: "Internal server error",
	})
}

// parseBody decodes a JSON request body into out. A zero-length body decodes
// as an empty object, so field-level validation names the missing field
// instead of failing on the parse.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return &validation.Error{Message: "Invalid request body"}
	}
	return nil
}
