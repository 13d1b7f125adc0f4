package handlers

import (
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/middleware"
	"github.com/captureai/backend/internal/services"
	"github.com/captureai/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type AIHandler struct {
	ai *services.AIService
}

func NewAIHandler(ai *services.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

// Complete proxies one screenshot question to the LLM gateway.
func (h *AIHandler) Complete(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return respondError(c, services.ErrUnauthorized)
	}

	var req dto.CompleteRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.ai.Complete(c.UserContext(), user, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Usage reports current quota consumption without consuming any.
func (h *AIHandler) Usage(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return respondError(c, services.ErrUnauthorized)
	}

	resp, err := h.ai.Usage(c.UserContext(), user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Models returns the static capability list.
func (h *AIHandler) Models(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": h.ai.Models()})
}

// Analytics aggregates cost/usage stats over ?days=N.
func (h *AIHandler) Analytics(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return respondError(c, services.ErrUnauthorized)
	}

	days, err := validation.IntInRange("days", c.Query("days"), 30, 1, 90)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.ai.Analytics(c.UserContext(), user.ID, days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
