package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/captureai/backend/internal/config"
	"github.com/captureai/backend/internal/database"
	"github.com/captureai/backend/internal/handlers"
	"github.com/captureai/backend/internal/logging"
	"github.com/captureai/backend/internal/middleware"
	"github.com/captureai/backend/internal/ratelimit"
	"github.com/captureai/backend/internal/routes"
	"github.com/captureai/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		slog.Error("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET environment variables are required")
		os.Exit(1)
	}
	if cfg.AIAPIKey == "" {
		slog.Error("AI_API_KEY environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logging.LevelFromEnv()}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Rate limiter: shared Redis counters when configured, in-memory fallback
	// otherwise (single-instance only; counters are not shared).
	var limiter ratelimit.Limiter
	if err := database.ConnectRedis(cfg); err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if database.Redis != nil {
		limiter = ratelimit.NewRedis(database.Redis)
	} else {
		slog.Warn("REDIS_ADDR not set, using in-memory rate limiter (single instance only)")
		limiter = ratelimit.NewMemory()
	}

	// Services
	licenseService := services.NewLicenseService(database.DB)
	billingService := services.NewBillingService(database.DB, cfg)
	aiService := services.NewAIService(database.DB, cfg)
	emailService := services.NewEmailService(cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(licenseService, emailService)
	aiHandler := handlers.NewAIHandler(aiService)
	billingHandler := handlers.NewBillingHandler(billingService)
	healthHandler := handlers.NewHealthHandler()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024, // screenshots are pre-compressed client-side
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, limiter, licenseService, authHandler, aiHandler, billingHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "version", handlers.Version)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
	if database.Redis != nil {
		if err := database.Redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "request_id", middleware.RequestID(c), "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}
	// 404s from the framework never echo the requested path.
	if code == fiber.StatusNotFound {
		message = "Not found"
	}

	return c.Status(code).JSON(map[string]string{"error": message})
}
