package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent is the idempotency ledger for billing-provider deliveries.
// The unique index on EventID makes concurrent duplicate deliveries race-safe:
// a duplicate-key error on insert means the event was already processed.
type WebhookEvent struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          string         `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	EventType        string         `gorm:"size:100;index" json:"event_type"`
	Payload          datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"payload"`
	WebhookTimestamp time.Time      `json:"webhook_timestamp"`
	ProcessedAt      time.Time      `json:"processed_at"`
}
