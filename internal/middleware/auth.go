package middleware

import (
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/models"
	"github.com/captureai/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const userLocalKey = "current_user"

// LicenseKeyAuth authenticates the "Authorization: LicenseKey <key>" scheme
// and stores the user in locals. The 401 message is the same for a missing
// key, a bad key, and a lapsed pro subscription.
func LicenseKeyAuth(licenses *services.LicenseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := licenses.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Invalid or missing license key",
			})
		}
		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// CurrentUser extracts the authenticated user set by LicenseKeyAuth.
func CurrentUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(userLocalKey).(*models.User); ok {
		return user
	}
	return nil
}
