package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier values.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// Subscription status values.
const (
	SubscriptionInactive  = "inactive"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
)

// User is a license-key account. The license key is the sole bearer
// credential; there are no passwords.
type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LicenseKey           string     `gorm:"size:29;not null;uniqueIndex" json:"licenseKey"`
	Email                string     `gorm:"size:320;index" json:"email"`
	Tier                 string     `gorm:"size:10;not null;default:'free'" json:"tier"`
	SubscriptionStatus   string     `gorm:"size:20;not null;default:'inactive'" json:"subscriptionStatus"`
	StripeCustomerID     *string    `gorm:"size:255;index" json:"-"`
	StripeSubscriptionID *string    `gorm:"size:255" json:"-"`
	LastValidatedAt      *time.Time `json:"lastValidatedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// HasActiveAccess reports whether the account may call protected endpoints.
// A pro user whose subscription is not active is treated as unauthenticated:
// a lapsed payment revokes access immediately, not just at tier level.
func (u *User) HasActiveAccess() bool {
	if u.Tier == TierPro {
		return u.SubscriptionStatus == SubscriptionActive
	}
	return true
}
