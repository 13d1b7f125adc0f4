package middleware

import (
	"strings"

	"github.com/captureai/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured origins plus any *.github.io page and any
// browser-extension origin. Everything else gets no allow-origin header.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return OriginAllowed(cfg.CORSOrigins, origin)
		},
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// OriginAllowed applies the allow-list policy to one Origin header value.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	if strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://") {
		return true
	}
	if strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, ".github.io") {
		// Reject bare "https://.github.io".
		host := strings.TrimPrefix(origin, "https://")
		return len(host) > len(".github.io")
	}
	return false
}
