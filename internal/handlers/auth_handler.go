package handlers

import (
	"log/slog"

	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/middleware"
	"github.com/captureai/backend/internal/services"
	"github.com/captureai/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	licenses *services.LicenseService
	email    *services.EmailService
}

func NewAuthHandler(licenses *services.LicenseService, email *services.EmailService) *AuthHandler {
	return &AuthHandler{licenses: licenses, email: email}
}

// CreateFreeKey issues (or re-sends) a free license key for an email.
// The response shape is the same whether or not the email already had a key.
func (h *AuthHandler) CreateFreeKey(c *fiber.Ctx) error {
	var req dto.CreateFreeKeyRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	email, err := validation.Email(req.Email)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.licenses.CreateFreeKey(c.UserContext(), email)
	if err != nil {
		return respondError(c, err)
	}

	emailFailed := false
	if err := h.email.SendLicenseKey(c.UserContext(), email, result.User.LicenseKey); err != nil {
		// Best-effort: the key was issued, delivery just didn't happen.
		slog.Warn("license key email failed", "error", err)
		emailFailed = true
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateFreeKeyResponse{
		Message:     "License key sent to your email",
		LicenseKey:  result.User.LicenseKey,
		Tier:        result.User.Tier,
		EmailFailed: emailFailed,
	})
}

// ValidateKey checks a license key and returns the public profile.
func (h *AuthHandler) ValidateKey(c *fiber.Ctx) error {
	var req dto.ValidateKeyRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	key, err := validation.LicenseKey(req.LicenseKey)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.licenses.ValidateKey(c.UserContext(), key)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(dto.ValidateKeyResponse{
		Message: "License key is valid",
		User: dto.UserResponse{
			ID:                 user.ID,
			Email:              user.Email,
			Tier:               user.Tier,
			SubscriptionStatus: user.SubscriptionStatus,
			LicenseKey:         user.LicenseKey,
		},
	})
}

// Me returns the authenticated user's public profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return respondError(c, services.ErrUnauthorized)
	}
	return c.JSON(dto.UserResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Tier:               user.Tier,
		SubscriptionStatus: user.SubscriptionStatus,
		LicenseKey:         user.LicenseKey,
	})
}
