package handlers

import (
	"time"

	"github.com/captureai/backend/internal/database"
	"github.com/captureai/backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

const Version = "1.3.0"

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	redisStatus := ""
	if database.Redis != nil {
		redisStatus = "ok"
		if err := database.PingRedis(); err != nil {
			redisStatus = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}
