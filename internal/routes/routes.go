package routes

import (
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/handlers"
	"github.com/captureai/backend/internal/middleware"
	"github.com/captureai/backend/internal/ratelimit"
	"github.com/captureai/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	limiter ratelimit.Limiter,
	licenses *services.LicenseService,
	authHandler *handlers.AuthHandler,
	aiHandler *handlers.AIHandler,
	billingHandler *handlers.BillingHandler,
	healthHandler *handlers.HealthHandler,
) {
	app.Get("/", healthHandler.Check)
	app.Get("/health", healthHandler.Check)

	protected := middleware.LicenseKeyAuth(licenses)

	auth := app.Group("/api/auth")
	auth.Post("/create-free-key",
		middleware.RateLimit(limiter, "free-key", ratelimit.PresetFreeKey),
		authHandler.CreateFreeKey)
	auth.Post("/validate-key",
		middleware.RateLimit(limiter, "validate", ratelimit.PresetValidate),
		authHandler.ValidateKey)
	auth.Get("/me",
		middleware.RateLimit(limiter, "auth", ratelimit.PresetAuth),
		protected, authHandler.Me)

	ai := app.Group("/api/ai")
	ai.Post("/complete", protected, aiHandler.Complete)
	ai.Post("/solve", protected, aiHandler.Complete) // legacy extension versions
	ai.Get("/usage", protected, aiHandler.Usage)
	ai.Get("/models", aiHandler.Models)
	ai.Get("/analytics", protected, aiHandler.Analytics)

	sub := app.Group("/api/subscription")
	sub.Post("/create-checkout",
		middleware.RateLimit(limiter, "checkout", ratelimit.PresetCheckout),
		billingHandler.CreateCheckout)
	sub.Post("/webhook", billingHandler.Webhook)
	sub.Get("/portal", protected, billingHandler.Portal)
	sub.Get("/plans", billingHandler.Plans)

	// Unknown routes never echo the requested path back.
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Not found"})
	})
}
