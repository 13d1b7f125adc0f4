package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/captureai/backend/internal/config"
	"github.com/captureai/backend/internal/models"
	"github.com/captureai/backend/internal/validation"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook timestamp tolerances. Replays older than two minutes are rejected;
// a small future window absorbs clock skew between us and the provider.
const (
	webhookMaxAge    = 120 * time.Second
	webhookMaxFuture = 30 * time.Second
)

type BillingService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewBillingService(db *gorm.DB, cfg *config.Config) *BillingService {
	stripe.Key = cfg.StripeSecretKey
	return &BillingService{db: db, cfg: cfg}
}

// VerifyWebhookSignature checks a provider signature header against the raw
// payload. The signed message is "{t}.{body}"; comparison is constant-time.
func VerifyWebhookSignature(payload []byte, header, secret string, now time.Time) (*validation.SignatureHeader, error) {
	sig, err := validation.ParseSignatureHeader(header)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	ts := time.Unix(sig.Timestamp, 0)
	if now.Sub(ts) > webhookMaxAge {
		return nil, ErrInvalidSignature
	}
	if ts.Sub(now) > webhookMaxFuture {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", sig.Timestamp)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	expectedRaw, _ := hex.DecodeString(expected)
	if !hmac.Equal(provided, expectedRaw) {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}

// HandleWebhook verifies, dedups, and applies one billing-provider delivery.
// Verification happens before any state mutation.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	sig, err := VerifyWebhookSignature(payload, sigHeader, s.cfg.StripeWebhookSecret, time.Now())
	if err != nil {
		return err
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return &validation.Error{Message: "Invalid webhook payload"}
	}
	if event.ID == "" {
		return &validation.Error{Message: "Webhook event is missing an id"}
	}

	if err := s.recordEvent(ctx, &event, sig.Timestamp); err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, &event)
	case "invoice.payment_succeeded":
		return s.handleInvoicePayment(ctx, &event, models.SubscriptionActive)
	case "invoice.payment_failed":
		return s.handleInvoicePayment(ctx, &event, models.SubscriptionPastDue)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, &event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, &event)
	default:
		// Unhandled event types are acknowledged and ignored.
		return nil
	}
}

// recordEvent inserts into the idempotency ledger. The unique index on
// event_id resolves concurrent duplicate deliveries: a duplicate-key error
// means another delivery won the race.
func (s *BillingService) recordEvent(ctx context.Context, event *stripe.Event, ts int64) error {
	row := models.WebhookEvent{
		ID:               uuid.New(),
		EventID:          event.ID,
		EventType:        string(event.Type),
		Payload:          datatypes.JSON(event.Data.Raw),
		WebhookTimestamp: time.Unix(ts, 0).UTC(),
		ProcessedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	email := checkoutEmail(&sess)
	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	if email == "" && customerID != "" {
		cust, err := customer.Get(customerID, nil)
		if err != nil {
			return mapStripeErr(err)
		}
		email = cust.Email
	}
	if email == "" {
		return fmt.Errorf("checkout session %s has no resolvable payer email", sess.ID)
	}
	normalized, err := validation.Email(email)
	if err != nil {
		normalized = email
	}

	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}

	updates := map[string]interface{}{
		"tier":                models.TierPro,
		"subscription_status": models.SubscriptionActive,
	}
	if customerID != "" {
		updates["stripe_customer_id"] = customerID
	}
	if subscriptionID != "" {
		updates["stripe_subscription_id"] = subscriptionID
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", normalized).First(&user).Error
	if err == nil {
		// Existing account keeps its license key.
		return s.db.WithContext(ctx).Model(&user).Updates(updates).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checkout user lookup failed: %w", err)
	}

	for attempt := 0; attempt < keyGenRetries; attempt++ {
		key, err := GenerateLicenseKey()
		if err != nil {
			return err
		}
		user = models.User{
			ID:                 uuid.New(),
			LicenseKey:         key,
			Email:              normalized,
			Tier:               models.TierPro,
			SubscriptionStatus: models.SubscriptionActive,
		}
		if customerID != "" {
			user.StripeCustomerID = &customerID
		}
		if subscriptionID != "" {
			user.StripeSubscriptionID = &subscriptionID
		}
		err = s.db.WithContext(ctx).Create(&user).Error
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return fmt.Errorf("failed to create pro user: %w", err)
	}
	return fmt.Errorf("failed to generate a unique license key after %d attempts", keyGenRetries)
}

func (s *BillingService) handleInvoicePayment(ctx context.Context, event *stripe.Event, status string) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	email := inv.CustomerEmail
	if email == "" && inv.Customer != nil && inv.Customer.Email != "" {
		email = inv.Customer.Email
	}
	if email == "" {
		return fmt.Errorf("invoice %s has no customer email", inv.ID)
	}
	if normalized, err := validation.Email(email); err == nil {
		email = normalized
	}

	updates := map[string]interface{}{"subscription_status": status}
	if status == models.SubscriptionActive {
		updates["tier"] = models.TierPro
	}
	// Payment failure keeps the tier: past_due is a grace period, access is
	// revoked by the auth check, not by a downgrade.

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("invoice status update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		slog.Warn("invoice event for unknown user", "event_id", event.ID, "email", email)
	}
	return nil
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription %s has no customer id", sub.ID)
	}

	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("stripe_customer_id = ?", sub.Customer.ID).
		Updates(map[string]interface{}{
			"tier":                models.TierFree,
			"subscription_status": models.SubscriptionCancelled,
		}).Error
}

func (s *BillingService) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription %s has no customer id", sub.ID)
	}

	tier, status := models.TierFree, models.SubscriptionInactive
	if sub.Status == stripe.SubscriptionStatusActive {
		tier, status = models.TierPro, models.SubscriptionActive
	}

	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("stripe_customer_id = ?", sub.Customer.ID).
		Updates(map[string]interface{}{
			"tier":                tier,
			"subscription_status": status,
		}).Error
}

// CreateCheckout finds or creates a provider customer for the email, then
// opens a subscription-mode checkout session and returns the hosted URL.
func (s *BillingService) CreateCheckout(ctx context.Context, email string) (*stripe.CheckoutSession, error) {
	cust, err := s.findOrCreateCustomer(email)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(cust.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.StripePriceIDPro),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.FrontendURL + "/billing/success"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "/billing/cancel"),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, mapStripeErr(err)
	}
	return sess, nil
}

// CreatePortal opens a billing-portal session for a user with a provider
// customer on file.
func (s *BillingService) CreatePortal(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", &validation.Error{Message: "No billing account on file for this license key"}
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.FrontendURL + "/account"),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		return "", mapStripeErr(err)
	}
	return sess.URL, nil
}

func (s *BillingService) findOrCreateCustomer(email string) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Limit = stripe.Int64(1)
	iter := customer.List(listParams)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, mapStripeErr(err)
	}

	cust, err := customer.New(&stripe.CustomerParams{Email: stripe.String(email)})
	if err != nil {
		return nil, mapStripeErr(err)
	}
	return cust, nil
}

func checkoutEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

func mapStripeErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &UpstreamError{
			Service: "billing provider",
			Status:  stripeErr.HTTPStatusCode,
			Message: stripeErr.Msg,
		}
	}
	return &UpstreamError{Service: "billing provider", Status: 0, Message: err.Error()}
}
