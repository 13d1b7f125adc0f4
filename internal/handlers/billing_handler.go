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

type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// CreateCheckout returns a hosted checkout URL for the pro subscription.
func (h *BillingHandler) CreateCheckout(c *fiber.Ctx) error {
	var req dto.CreateCheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	email, err := validation.Email(req.Email)
	if err != nil {
		return respondError(c, err)
	}

	sess, err := h.billing.CreateCheckout(c.UserContext(), email)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID})
}

// Webhook processes billing-provider deliveries. Verification runs before any
// state change; duplicate deliveries are acknowledged without reprocessing.
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	err := h.billing.HandleWebhook(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
	if err == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	if errors.Is(err, services.ErrDuplicateEvent) {
		slog.Info("duplicate webhook delivery ignored")
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}
	if errors.Is(err, services.ErrInvalidSignature) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Webhook signature verification failed",
		})
	}
	return respondError(c, err)
}

// Portal returns a hosted billing-portal URL for the authenticated user.
func (h *BillingHandler) Portal(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return respondError(c, services.ErrUnauthorized)
	}

	url, err := h.billing.CreatePortal(c.UserContext(), user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PortalResponse{URL: url})
}

// Plans returns the static plan list.
func (h *BillingHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": []dto.Plan{
		{
			ID:       "free",
			Name:     "Free",
			Price:    "$0",
			Interval: "forever",
			Features: []string{"10 AI answers per day", "OCR text extraction", "All capture modes"},
		},
		{
			ID:       "pro",
			Name:     "Pro",
			Price:    "$7.99",
			Interval: "month",
			Features: []string{"Unlimited daily answers", "Higher reasoning levels", "Priority support"},
		},
	}})
}
