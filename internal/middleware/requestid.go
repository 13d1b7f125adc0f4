package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequestID returns the id the requestid middleware assigned to this request,
// or "" when called outside a request scope. Log sites pass it as the
// request_id attr so stored error logs can be correlated with access logs.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
