package middleware

import (
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// RateLimit applies a named fixed-window preset keyed by client IP. The
// limiter backend decides whether the window is instance-local or shared.
func RateLimit(limiter ratelimit.Limiter, name string, preset ratelimit.Preset) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Check(c.UserContext(), name+":"+c.IP(), preset.Limit, preset.Window)
		if err != nil {
			// Limiter backends fail open; an error here is unexpected but
			// still must not block traffic.
			return c.Next()
		}
		if !result.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.QuotaResponse{
				Error:     "Too many requests, please try again later",
				Limit:     result.Limit,
				Used:      result.Used,
				LimitType: "fixed_window",
			})
		}
		return c.Next()
	}
}
