package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/captureai/backend/internal/config"
	"github.com/captureai/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string, ts int64) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignatureValid(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed"}`)
	header := signPayload(t, payload, testSecret, now.Unix())

	sig, err := VerifyWebhookSignature(payload, header, testSecret, now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), sig.Timestamp)
}

func TestVerifyWebhookSignatureTamperedSignature(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_123"}`)
	header := signPayload(t, payload, testSecret, now.Unix())

	// Flip one hex character of the signature.
	last := header[len(header)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := header[:len(header)-1] + string(flipped)

	_, err := VerifyWebhookSignature(payload, tampered, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignatureTamperedPayload(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_123"}`)
	header := signPayload(t, payload, testSecret, now.Unix())

	_, err := VerifyWebhookSignature([]byte(`{"id":"evt_999"}`), header, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignatureWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_123"}`)
	header := signPayload(t, payload, "whsec_other", now.Unix())

	_, err := VerifyWebhookSignature(payload, header, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignatureTimestampBounds(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_123"}`)

	cases := []struct {
		name   string
		offset time.Duration
		valid  bool
	}{
		{"121s old rejected", -121 * time.Second, false},
		{"119s old accepted", -119 * time.Second, true},
		{"31s future rejected", 31 * time.Second, false},
		{"29s future accepted", 29 * time.Second, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := now.Add(tc.offset).Unix()
			header := signPayload(t, payload, testSecret, ts)
			_, err := VerifyWebhookSignature(payload, header, testSecret, now)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			}
		})
	}
}

func TestVerifyWebhookSignatureMalformedHeader(t *testing.T) {
	now := time.Now()
	for _, header := range []string{"", "t=abc,v1=00ff", "v1=00ff", "t=123"} {
		_, err := VerifyWebhookSignature([]byte("{}"), header, testSecret, now)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func testBillingService(t *testing.T) *BillingService {
	t.Helper()
	return NewBillingService(openTestDB(t), &config.Config{StripeWebhookSecret: testSecret})
}

func deliver(t *testing.T, svc *BillingService, payload []byte) error {
	t.Helper()
	return svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret, time.Now().Unix()))
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	svc := testBillingService(t)
	payload := []byte(`{"id":"evt_co_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","customer_details":{"email":"payer@example.com"}}}}`)

	require.NoError(t, deliver(t, svc, payload))

	var user models.User
	require.NoError(t, svc.db.Where("email = ?", "payer@example.com").First(&user).Error)
	assert.Equal(t, models.TierPro, user.Tier)
	assert.Equal(t, models.SubscriptionActive, user.SubscriptionStatus)
	assert.NotEmpty(t, user.LicenseKey)
	require.NotNil(t, user.StripeCustomerID)
	assert.Equal(t, "cus_1", *user.StripeCustomerID)
}

func TestHandleWebhookReplay(t *testing.T) {
	svc := testBillingService(t)
	payload := []byte(`{"id":"evt_replay_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","customer_details":{"email":"payer@example.com"}}}}`)

	require.NoError(t, deliver(t, svc, payload))

	var user models.User
	require.NoError(t, svc.db.Where("email = ?", "payer@example.com").First(&user).Error)
	firstKey := user.LicenseKey

	// Same event id again, freshly signed: acknowledged as a duplicate, no
	// second state change.
	err := deliver(t, svc, payload)
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	var users int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)

	require.NoError(t, svc.db.Where("email = ?", "payer@example.com").First(&user).Error)
	assert.Equal(t, firstKey, user.LicenseKey)

	var events int64
	require.NoError(t, svc.db.Model(&models.WebhookEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestHandleWebhookCheckoutKeepsExistingKey(t *testing.T) {
	svc := testBillingService(t)
	user := createTestUser(t, svc.db, models.TierFree, models.SubscriptionInactive)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_up_1","type":"checkout.session.completed","data":{"object":{"id":"cs_2","customer":"cus_2","customer_details":{"email":%q}}}}`,
		user.Email))
	require.NoError(t, deliver(t, svc, payload))

	var got models.User
	require.NoError(t, svc.db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, user.LicenseKey, got.LicenseKey)
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.SubscriptionActive, got.SubscriptionStatus)
}

func TestHandleWebhookPaymentFailedKeepsTier(t *testing.T) {
	svc := testBillingService(t)
	user := createTestUser(t, svc.db, models.TierPro, models.SubscriptionActive)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_pf_1","type":"invoice.payment_failed","data":{"object":{"id":"in_1","customer_email":%q}}}`,
		user.Email))
	require.NoError(t, deliver(t, svc, payload))

	var got models.User
	require.NoError(t, svc.db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.SubscriptionPastDue, got.SubscriptionStatus)
	assert.False(t, got.HasActiveAccess())
}

func TestHandleWebhookSubscriptionDeleted(t *testing.T) {
	svc := testBillingService(t)
	user := createTestUser(t, svc.db, models.TierPro, models.SubscriptionActive)
	customerID := "cus_del_1"
	require.NoError(t, svc.db.Model(user).Update("stripe_customer_id", customerID).Error)

	payload := []byte(`{"id":"evt_del_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_9","customer":"cus_del_1"}}}`)
	require.NoError(t, deliver(t, svc, payload))

	var got models.User
	require.NoError(t, svc.db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, models.TierFree, got.Tier)
	assert.Equal(t, models.SubscriptionCancelled, got.SubscriptionStatus)
}

func TestHandleWebhookUnknownTypeAcknowledged(t *testing.T) {
	svc := testBillingService(t)
	payload := []byte(`{"id":"evt_misc_1","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)
	assert.NoError(t, deliver(t, svc, payload))
}
